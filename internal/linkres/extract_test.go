package linkres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeStrategy records attempts and answers from a canned script
type fakeStrategy struct {
	name     string
	streamBy map[string]string // "selector/profile" -> stream URL
	metaBy   map[string]Metadata
	failWith error
	attempts []string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) StreamURL(_ context.Context, _, selector string, profile authProfile) (string, error) {
	combo := selector + "/" + profile.Name
	f.attempts = append(f.attempts, combo)
	if f.failWith != nil {
		return "", f.failWith
	}
	if url, ok := f.streamBy[combo]; ok {
		return url, nil
	}
	return "", fmt.Errorf("no stream for %s", combo)
}

func (f *fakeStrategy) Metadata(_ context.Context, _, selector string, profile authProfile) (Metadata, error) {
	combo := selector + "/" + profile.Name
	if meta, ok := f.metaBy[combo]; ok {
		return meta, nil
	}
	return Metadata{}, fmt.Errorf("no metadata for %s", combo)
}

func newTestChain(strategies ...strategy) *Chain {
	return &Chain{
		strategies: strategies,
		timeout:    time.Second,
		logger:     zap.NewNop(),
	}
}

func TestResolveStreamFirstSuccessWins(t *testing.T) {
	first := &fakeStrategy{name: "first", failWith: errors.New("broken binding")}
	second := &fakeStrategy{
		name: "second",
		streamBy: map[string]string{
			"bestaudio/best/anonymous": "https://cdn.example.com/stream",
		},
	}
	third := &fakeStrategy{name: "third"}

	chain := newTestChain(first, second, third)
	info, err := chain.ResolveStream(context.Background(), "https://example.com/page", PlatformGeneric)
	if err != nil {
		t.Fatalf("ResolveStream() error: %v", err)
	}

	if info.URL != "https://cdn.example.com/stream" {
		t.Errorf("stream URL = %q, expected cdn URL", info.URL)
	}
	if info.Strategy != "second" {
		t.Errorf("winning strategy = %q, expected %q", info.Strategy, "second")
	}
	if info.Selector != "bestaudio/best" || info.Profile != "anonymous" {
		t.Errorf("winning combo = %q/%q, expected bestaudio/best/anonymous", info.Selector, info.Profile)
	}
	if len(third.attempts) != 0 {
		t.Errorf("third strategy attempted %d times after success, expected 0", len(third.attempts))
	}
}

func TestResolveStreamSelectorOuterProfileInner(t *testing.T) {
	s := &fakeStrategy{name: "only", failWith: errors.New("always fails")}
	chain := newTestChain(s)

	_, err := chain.ResolveStream(context.Background(), "https://youtube.com/watch?v=x", PlatformYouTube)
	if err == nil {
		t.Fatal("ResolveStream() succeeded, expected exhaustion")
	}

	expected := []string{
		"bestaudio[ext=m4a]/bestaudio/best/anonymous",
		"bestaudio[ext=m4a]/bestaudio/best/chrome-cookies",
		"bestaudio[ext=m4a]/bestaudio/best/firefox-cookies",
		"bestaudio/best/anonymous",
		"bestaudio/best/chrome-cookies",
		"bestaudio/best/firefox-cookies",
	}
	if len(s.attempts) != len(expected) {
		t.Fatalf("attempts = %d, expected %d: %v", len(s.attempts), len(expected), s.attempts)
	}
	for i, combo := range expected {
		if s.attempts[i] != combo {
			t.Errorf("attempt %d = %q, expected %q", i, s.attempts[i], combo)
		}
	}
}

func TestResolveStreamAnonymousOnlyForOpenPlatforms(t *testing.T) {
	s := &fakeStrategy{name: "only", failWith: errors.New("always fails")}
	chain := newTestChain(s)

	_, err := chain.ResolveStream(context.Background(), "https://example.com/page", PlatformGeneric)
	if err == nil {
		t.Fatal("ResolveStream() succeeded, expected exhaustion")
	}

	for _, combo := range s.attempts {
		if combo != "bestaudio/best/anonymous" {
			t.Errorf("unexpected attempt %q for open platform", combo)
		}
	}
}

func TestResolveStreamExhaustionClassifiesReason(t *testing.T) {
	s := &fakeStrategy{name: "only", failWith: errors.New("ERROR: Sign in to confirm you are not a bot")}
	chain := newTestChain(s)

	_, err := chain.ResolveStream(context.Background(), "https://youtube.com/watch?v=x", PlatformYouTube)
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("error type = %T, expected *ResolveError", err)
	}
	if resolveErr.Reason != ReasonAuthRequired {
		t.Errorf("reason = %q, expected %q", resolveErr.Reason, ReasonAuthRequired)
	}
	if resolveErr.Warning() == "" {
		t.Error("Warning() is empty, expected user-facing message")
	}
}

func TestFetchMetadataPrefersWinningStrategy(t *testing.T) {
	win := StreamInfo{
		Selector: "bestaudio/best",
		Profile:  "anonymous",
		Strategy: "second",
	}

	first := &fakeStrategy{name: "first", metaBy: map[string]Metadata{
		"bestaudio/best/anonymous": {Title: "from first"},
	}}
	second := &fakeStrategy{name: "second", metaBy: map[string]Metadata{
		"bestaudio/best/anonymous": {Title: "from second", Uploader: "Artist"},
	}}

	chain := newTestChain(first, second)
	meta, err := chain.FetchMetadata(context.Background(), "https://example.com/page", win)
	if err != nil {
		t.Fatalf("FetchMetadata() error: %v", err)
	}
	if meta.Title != "from second" {
		t.Errorf("metadata title = %q, expected winning strategy's result", meta.Title)
	}
}

func TestFetchMetadataFallsBackAcrossStrategies(t *testing.T) {
	win := StreamInfo{Selector: "bestaudio/best", Profile: "anonymous", Strategy: "first"}

	first := &fakeStrategy{name: "first", failWith: errors.New("broken")}
	second := &fakeStrategy{name: "second", metaBy: map[string]Metadata{
		"bestaudio/best/anonymous": {Title: "rescued"},
	}}

	chain := newTestChain(first, second)
	meta, err := chain.FetchMetadata(context.Background(), "https://example.com/page", win)
	if err != nil {
		t.Fatalf("FetchMetadata() error: %v", err)
	}
	if meta.Title != "rescued" {
		t.Errorf("metadata title = %q, expected fallback strategy's result", meta.Title)
	}
}

func TestClassifyDiagnostic(t *testing.T) {
	tests := []struct {
		text     string
		expected FailureReason
	}{
		{"ERROR: Sign in to confirm your age", ReasonAuthRequired},
		{"ERROR: This video requires login required cookies", ReasonAuthRequired},
		{"ERROR: Private video. Sign in if you've been granted access", ReasonAuthRequired},
		{"ERROR: This track is private", ReasonPrivate},
		{"ERROR: Video unavailable", ReasonUnavailable},
		{"ERROR: This content has been removed", ReasonUnavailable},
		{"ERROR: Requested format is not available", ReasonFormatUnavailable},
		{"something entirely different", ReasonGeneric},
		{"", ReasonGeneric},
	}

	for _, test := range tests {
		result := ClassifyDiagnostic(test.text)
		if result != test.expected {
			t.Errorf("ClassifyDiagnostic(%q) = %q, expected %q", test.text, result, test.expected)
		}
	}
}

func TestMetadataBestThumbnail(t *testing.T) {
	tests := []struct {
		meta     Metadata
		expected string
	}{
		{Metadata{Thumbnail: "https://img/one.jpg"}, "https://img/one.jpg"},
		{Metadata{Thumbnails: []string{"small", "large"}}, "large"},
		{Metadata{Thumbnail: "reported", Thumbnails: []string{"listed"}}, "reported"},
		{Metadata{}, ""},
	}

	for _, test := range tests {
		result := test.meta.BestThumbnail()
		if result != test.expected {
			t.Errorf("BestThumbnail() = %q, expected %q", result, test.expected)
		}
	}
}

func TestParseMetadataJSON(t *testing.T) {
	doc := `{
		"title": " Song Title ",
		"uploader": "",
		"channel": "Channel Name",
		"thumbnail": "https://img/cover.jpg",
		"ext": "m4a",
		"thumbnails": [{"url": "https://img/small.jpg"}, {"url": "https://img/large.jpg"}]
	}`

	meta, err := parseMetadataJSON([]byte(doc))
	if err != nil {
		t.Fatalf("parseMetadataJSON() error: %v", err)
	}
	if meta.Title != "Song Title" {
		t.Errorf("title = %q, expected trimmed %q", meta.Title, "Song Title")
	}
	if meta.Uploader != "Channel Name" {
		t.Errorf("uploader = %q, expected channel fallback", meta.Uploader)
	}
	if len(meta.Thumbnails) != 2 || meta.Thumbnails[1] != "https://img/large.jpg" {
		t.Errorf("thumbnails = %v, expected both entries", meta.Thumbnails)
	}

	if _, err := parseMetadataJSON([]byte("not json")); err == nil {
		t.Error("parseMetadataJSON() on garbage succeeded, expected error")
	}
}
