package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sebastian/internal/components/telemetry"
	"sebastian/lib/scrapers/ariel/core"
	"sebastian/lib/scrapers/ariel/page"
	"sebastian/lib/scrapers/ariel/progress"
	"testing"

	"github.com/stretchr/testify/require"
)

const loginForm = `<form><input type="text" name="tbLogin"><input type="password" name="tbPassword"></form>`

const masterManifest = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=400000
chunklist_low.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000
chunklist_high.m3u8
`

const mediaManifest = `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg_0.ts
#EXTINF:10.0,
seg_1.ts
#EXTINF:3.0,
seg_2.ts
#EXT-X-ENDLIST
`

const streamBase = "https://video.ctu.unimi.it/vod/mp4:lecture_01.mp4/"

var slides = page.ContentItem{
	Name:    "slides.pdf",
	Url:     "https://analisi1.ctu.unimi.it/files/slides.pdf",
	Site:    "Analisi Matematica 1",
	Ambient: "Lezioni",
	Thread:  "Lezione 1",
	Kind:    page.Generic,
}

var recording = page.ContentItem{
	Name:    "recording_Lezione 1",
	Url:     streamBase + "manifest.m3u8",
	Site:    "Analisi Matematica 1",
	Ambient: "Lezioni",
	Thread:  "Lezione 1",
	Kind:    page.Stream,
}

func newTestEngine(t testing.TB) (*Engine, *core.Fake, *telemetry.Recorder) {
	t.Helper()
	fake := core.NewFake()
	require.NoError(t, fake.Authenticate(context.Background(), core.Credentials{Username: "u", Password: "p"}))
	recorder := &telemetry.Recorder{}
	return NewEngine(fake, recorder), fake, recorder
}

func serveStream(fake *core.Fake) {
	fake.Serve(streamBase+"manifest.m3u8", []byte(masterManifest))
	fake.Serve(streamBase+"chunklist_low.m3u8", []byte(mediaManifest))
	fake.Serve(streamBase+"seg_0.ts", []byte("aaaa"))
	fake.Serve(streamBase+"seg_1.ts", []byte("bbbbbb"))
	fake.Serve(streamBase+"seg_2.ts", []byte("cc"))
}

func runDownload(t testing.TB, ctx context.Context, engine *Engine, item page.ContentItem, root string) (string, []progress.Event, error) {
	t.Helper()

	sink := make(chan progress.Event)
	var events []progress.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sink {
			events = append(events, event)
		}
	}()

	path, err := engine.Download(ctx, item, root, sink)
	// the engine must close the sink, otherwise this blocks forever
	<-done
	return path, events, err
}

func TestDownloadGeneric(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	fake.Serve(slides.Url, []byte("%PDF-1.7 slides"))
	root := t.TempDir()

	path, events, err := runDownload(t, context.Background(), engine, slides, root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Analisi Matematica 1", "Lezioni", "Lezione 1", "slides.pdf"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7 slides", string(contents))
	require.Equal(t, []progress.Event{{Item: slides.Url, Bytes: 15}}, events)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no partial files should be left behind")
}

func TestDownloadReauthenticatesOnce(t *testing.T) {
	engine, fake, recorder := newTestEngine(t)
	fake.ServeOnce(slides.Url, []byte(loginForm))
	fake.Serve(slides.Url, []byte("content"))

	_, events, err := runDownload(t, context.Background(), engine, slides, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 2, fake.Authentications(), "one login plus exactly one renewal")
	require.Equal(t, 2, fake.Calls(slides.Url))
	require.Equal(t, []progress.Event{{Item: slides.Url, Bytes: 7}}, events)
	require.Len(t, recorder.Reports("warning", "engine.fetch"), 1)
}

func TestDownloadSessionExpired(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	engine.MaxReauth = 2
	fake.Serve(slides.Url, []byte(loginForm))
	root := t.TempDir()

	_, events, err := runDownload(t, context.Background(), engine, slides, root)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Empty(t, events)
	require.Equal(t, 1+2, fake.Authentications())
	require.Equal(t, 1+2, fake.Calls(slides.Url))

	_, err = os.Stat(filepath.Join(root, "Analisi Matematica 1"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadRenewalFails(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	fake.Serve(slides.Url, []byte(loginForm))
	fake.RejectLogin = true

	_, _, err := runDownload(t, context.Background(), engine, slides, t.TempDir())
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestDownloadNetworkError(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, _, err := runDownload(t, context.Background(), engine, slides, t.TempDir())
	var netErr *core.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestDownloadStream(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	serveStream(fake)
	root := t.TempDir()

	path, events, err := runDownload(t, context.Background(), engine, recording, root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Analisi Matematica 1", "Lezioni", "Lezione 1", "lecture_01.mp4"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "aaaabbbbbbcc", string(contents))

	require.Equal(t, []progress.Event{
		{Item: recording.Url, Bytes: 4},
		{Item: recording.Url, Bytes: 6},
		{Item: recording.Url, Bytes: 2},
	}, events)
	require.Equal(t, 0, fake.Calls(streamBase+"chunklist_high.m3u8"))
}

func TestDownloadStreamExpiresMidway(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	serveStream(fake)
	fake.ServeOnce(streamBase+"seg_1.ts", []byte(loginForm))

	path, _, err := runDownload(t, context.Background(), engine, recording, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 2, fake.Authentications())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "aaaabbbbbbcc", string(contents))
}

func TestDownloadStreamFailureLeavesNothing(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	serveStream(fake)
	fake.Fail(streamBase+"seg_2.ts", errors.New("connection reset"))
	root := t.TempDir()

	_, events, err := runDownload(t, context.Background(), engine, recording, root)
	require.ErrorContains(t, err, "connection reset")
	require.Len(t, events, 2)

	entries, err := os.ReadDir(Dir(root, recording))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDownloadCanceled(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	serveStream(fake)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := runDownload(t, ctx, engine, recording, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}

func TestProbeSize(t *testing.T) {
	engine, fake, _ := newTestEngine(t)
	fake.SetSize(slides.Url, 2048)
	ctx := context.Background()

	size, err := engine.ProbeSize(ctx, slides)
	require.NoError(t, err)
	require.Equal(t, Size{Bytes: 2048, Known: true}, size)
	require.Equal(t, "2.0 kB", size.String())

	unsized := slides
	unsized.Url = "https://analisi1.ctu.unimi.it/files/unsized.pdf"
	size, err = engine.ProbeSize(ctx, unsized)
	require.NoError(t, err)
	require.Equal(t, Size{Bytes: 0, Known: true}, size)

	size, err = engine.ProbeSize(ctx, recording)
	require.NoError(t, err)
	require.False(t, size.Known)
	require.Equal(t, "unknown", size.String())
	require.Equal(t, 0, fake.Calls(recording.Url))
}

func TestStreamFilename(t *testing.T) {
	cases := []struct {
		url    string
		expect string
	}{
		{url: "https://video.ctu.unimi.it/vod/mp4:lecture_01.mp4/manifest.m3u8", expect: "lecture_01.mp4"},
		{url: "https://video.ctu.unimi.it/vod/mp4:Lezione%2001%20-%20Intro.MP4/manifest.m3u8", expect: "lezione_01_intro.mp4"},
		{url: "https://video.ctu.unimi.it/app/vod/mp4:lecture_02/manifest.m3u8", expect: "lecture_02.mp4"},
		{url: "https://video.ctu.unimi.it/vod/flv:Registrazione/manifest.f4m", expect: "registrazione.flv"},
	}
	for _, test := range cases {
		item := recording
		item.Url = test.url
		name, err := StreamFilename(item)
		require.NoError(t, err, test.url)
		require.Equal(t, test.expect, name, test.url)
	}

	item := recording
	item.Url = "https://video.ctu.unimi.it/live/playlist.m3u8"
	first, err := StreamFilename(item)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^recording_Lezione 1[A-Za-z0-9]{8}$`), first)
	second, err := StreamFilename(item)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestGenericFilename(t *testing.T) {
	require.Equal(t, "slides.pdf", GenericFilename(slides))

	item := slides
	item.Name = "appunti 1/2.pdf"
	require.Equal(t, "appunti 1_2.pdf", GenericFilename(item))
}
