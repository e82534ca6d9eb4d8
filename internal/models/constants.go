package models

// Fallback labels for playlist imports. The panel UI is pt-BR, so these
// match what the dashboard shows for unnamed entries.
const (
	DefaultPlaylistName = "Minha Playlist"
	DefaultGroupName    = "Outros"
	DefaultChannelName  = "Sem nome"
)
