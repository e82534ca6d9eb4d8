package m3u

import (
	"reflect"
	"strings"
	"testing"
)

const samplePlaylist = "#EXTM3U\n" +
	"#EXTINF:-1 tvg-logo=\"http://logo\" group-title=\"News\",Channel One\n" +
	"http://stream1\n" +
	"#EXTINF:-1 group-title=\"Sports\",Channel Two\n" +
	"http://stream2\n"

func TestParseSamplePlaylist(t *testing.T) {
	p := Parse(samplePlaylist)

	if p.InvalidCount != 0 {
		t.Errorf("InvalidCount = %d, want 0", p.InvalidCount)
	}
	if p.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", p.TotalEntries)
	}
	if len(p.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(p.Groups))
	}
	if p.Groups[0].Name != "News" || p.Groups[1].Name != "Sports" {
		t.Errorf("group order = %q, %q; want News, Sports", p.Groups[0].Name, p.Groups[1].Name)
	}
	want := Channel{Name: "Channel One", Logo: "http://logo", URL: "http://stream1", Group: "News"}
	if got := p.Groups[0].Channels[0]; got != want {
		t.Errorf("News[0] = %+v, want %+v", got, want)
	}
}

func TestParseCountsAndGrouping(t *testing.T) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	groups := []string{"A", "B", "C"}
	n := 0
	for i := 0; i < 9; i++ {
		b.WriteString("#EXTINF:-1 group-title=\"" + groups[i%3] + "\",Ch " + string(rune('0'+i)) + "\n")
		b.WriteString("http://host/stream" + string(rune('0'+i)) + "\n")
		n++
	}
	// Two malformed headers: one at EOF with no URL, one followed only
	// by comments.
	b.WriteString("#EXTINF:-1 group-title=\"A\",Broken\n")
	b.WriteString("#EXTINF:-1 group-title=\"A\",Also broken\n")
	b.WriteString("# just a comment\n")

	p := Parse(b.String())

	if len(p.Groups) != 3 {
		t.Errorf("groups = %d, want 3", len(p.Groups))
	}
	sum := 0
	for _, g := range p.Groups {
		sum += len(g.Channels)
	}
	if sum != n || p.TotalEntries != n {
		t.Errorf("channels = %d, TotalEntries = %d, want %d", sum, p.TotalEntries, n)
	}
	headers := strings.Count(b.String(), "#EXTINF")
	if p.InvalidCount+p.TotalEntries != headers {
		t.Errorf("invalid(%d) + total(%d) != headers(%d)", p.InvalidCount, p.TotalEntries, headers)
	}
}

func TestParseIsPure(t *testing.T) {
	a := Parse(samplePlaylist)
	b := Parse(samplePlaylist)
	if !reflect.DeepEqual(a, b) {
		t.Error("re-parsing the same text produced a different result")
	}
}

func TestParseDefaults(t *testing.T) {
	p := Parse("#EXTINF:-1,\nhttp://stream\n")
	if p.TotalEntries != 1 {
		t.Fatalf("TotalEntries = %d, want 1", p.TotalEntries)
	}
	ch := p.Groups[0].Channels[0]
	if ch.Group != "Outros" {
		t.Errorf("group = %q, want Outros", ch.Group)
	}
	if ch.Logo != "" {
		t.Errorf("logo = %q, want empty", ch.Logo)
	}
	if ch.Name != "Sem nome" {
		t.Errorf("name = %q, want Sem nome", ch.Name)
	}
}

func TestParseWhitespaceOnlyAttributesAreAbsent(t *testing.T) {
	p := Parse("#EXTINF:-1 group-title=\"  \" tvg-logo=\"  \" tvg-name=\" \",  \nhttp://stream\n")
	ch := p.Groups[0].Channels[0]
	if ch.Group != "Outros" || ch.Logo != "" || ch.Name != "Sem nome" {
		t.Errorf("whitespace attrs not treated as absent: %+v", ch)
	}
}

func TestParseNoCommaHeaderFallsBackToTvgName(t *testing.T) {
	p := Parse("#EXTINF:-1 tvg-name=\"Globo\" group-title=\"X\"\nhttp://stream\n")
	if p.InvalidCount != 0 {
		t.Fatalf("InvalidCount = %d, want 0 (missing comma is not malformed)", p.InvalidCount)
	}
	if got := p.Groups[0].Channels[0].Name; got != "Globo" {
		t.Errorf("name = %q, want Globo", got)
	}

	p = Parse("#EXTINF:-1 group-title=\"X\"\nhttp://stream\n")
	if got := p.Groups[0].Channels[0].Name; got != "Sem nome" {
		t.Errorf("name = %q, want Sem nome", got)
	}
}

func TestParseNameWithCommas(t *testing.T) {
	p := Parse("#EXTINF:-1 group-title=\"X\",News, Weather & Sport\nhttp://stream\n")
	if got := p.Groups[0].Channels[0].Name; got != "News, Weather & Sport" {
		t.Errorf("name = %q, want comma-joined remainder", got)
	}
}

func TestParseAttributeKeyIsCaseInsensitive(t *testing.T) {
	p := Parse("#EXTINF:-1 GROUP-TITLE=\"Filmes\" TVG-LOGO=\"http://l\",X\nhttp://stream\n")
	ch := p.Groups[0].Channels[0]
	if ch.Group != "Filmes" || ch.Logo != "http://l" {
		t.Errorf("case-insensitive attributes not honored: %+v", ch)
	}
}

func TestParseURLOnLaterLine(t *testing.T) {
	p := Parse("#EXTINF:-1 group-title=\"X\",Ch\n\n# comment between\nhttp://stream\n")
	if p.TotalEntries != 1 || p.InvalidCount != 0 {
		t.Fatalf("total = %d invalid = %d, want 1/0", p.TotalEntries, p.InvalidCount)
	}
	if got := p.Groups[0].Channels[0].URL; got != "http://stream" {
		t.Errorf("url = %q, want http://stream", got)
	}
}

func TestParseLineEndingNormalization(t *testing.T) {
	lf := Parse(samplePlaylist)
	crlf := Parse(strings.ReplaceAll(samplePlaylist, "\n", "\r\n"))
	cr := Parse(strings.ReplaceAll(samplePlaylist, "\n", "\r"))
	if !reflect.DeepEqual(lf, crlf) {
		t.Error("CRLF input parsed differently than LF")
	}
	if !reflect.DeepEqual(lf, cr) {
		t.Error("CR input parsed differently than LF")
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, content := range []string{"", "#EXTM3U\n", "random text\nmore text\n"} {
		p := Parse(content)
		if p.TotalEntries != 0 || p.InvalidCount != 0 || len(p.Groups) != 0 {
			t.Errorf("Parse(%q) = %+v, want empty result", content, p)
		}
	}
}
