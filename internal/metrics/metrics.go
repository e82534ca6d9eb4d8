package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportsTotal counts playlist import attempts. The "result" label is
// "ok" for committed imports and the error kind otherwise (e.g.
// "forbidden_host", "empty_playlist", "db").
var ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "panel_playlist_imports_total",
	Help: "Playlist import attempts by result",
}, []string{"result"})

// ChannelsImported counts channel rows actually inserted by imports.
var ChannelsImported = promauto.NewCounter(prometheus.CounterOpts{
	Name: "panel_playlist_channels_imported_total",
	Help: "Channel rows inserted by playlist imports",
})

// DuplicateChannels counts channels skipped because their stream URL
// already existed in the category.
var DuplicateChannels = promauto.NewCounter(prometheus.CounterOpts{
	Name: "panel_playlist_duplicate_channels_total",
	Help: "Channels skipped as duplicates during import",
})

// InvalidEntries counts malformed playlist entries (parser and
// importer-side checks combined).
var InvalidEntries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "panel_playlist_invalid_entries_total",
	Help: "Malformed playlist entries skipped during import",
})

// DownloadSeconds observes how long the playlist fetch phase took.
var DownloadSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "panel_playlist_download_seconds",
	Help:    "Playlist download duration",
	Buckets: prometheus.DefBuckets,
})
