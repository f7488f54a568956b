package manifest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const masterManifest = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=400000,RESOLUTION=640x360
chunklist_w1_b400000.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720
chunklist_w1_b800000.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1600000,RESOLUTION=1920x1080
chunklist_w1_b1600000.m3u8
`

const mediaManifest = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
media_w1_0.ts
#EXTINF:10.0,
media_w1_1.ts
#EXTINF:4.5,
../other/media_w1_2.ts
#EXT-X-ENDLIST
`

type fakeServer struct {
	bodies map[string]string
	calls  []string
}

func (f *fakeServer) fetch(ctx context.Context, target string) ([]byte, error) {
	f.calls = append(f.calls, target)
	body, ok := f.bodies[target]
	if !ok {
		return nil, fmt.Errorf("not found: %s", target)
	}
	return []byte(body), nil
}

const base = "https://videolezioni.ctu.unimi.it/vod/mp4:lecture_01.mp4/"

func TestResolveMaster(t *testing.T) {
	server := &fakeServer{bodies: map[string]string{
		base + "manifest.m3u8":             masterManifest,
		base + "chunklist_w1_b400000.m3u8": mediaManifest,
	}}
	resolver := Resolver{Fetch: server.fetch}

	segments, err := resolver.Resolve(context.Background(), base+"manifest.m3u8")
	require.NoError(t, err)

	expect := []Segment{
		{Uri: base + "media_w1_0.ts"},
		{Uri: base + "media_w1_1.ts"},
		{Uri: "https://videolezioni.ctu.unimi.it/vod/other/media_w1_2.ts"},
	}
	require.Empty(t, cmp.Diff(expect, segments))
	require.Equal(t, []string{base + "manifest.m3u8", base + "chunklist_w1_b400000.m3u8"}, server.calls)
}

func TestResolveAgainstOwnUrl(t *testing.T) {
	// the variant lives in a different directory than the master, segments
	// must be resolved against the variant
	master := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nhttps://cdn.example.com/streams/a/playlist.m3u8\n"
	server := &fakeServer{bodies: map[string]string{
		"https://portal.example.com/master.m3u8":          master,
		"https://cdn.example.com/streams/a/playlist.m3u8": mediaManifest,
	}}
	resolver := Resolver{Fetch: server.fetch}

	segments, err := resolver.Resolve(context.Background(), "https://portal.example.com/master.m3u8")
	require.NoError(t, err)
	require.Len(t, segments, 3)
	require.Equal(t, "https://cdn.example.com/streams/a/media_w1_0.ts", segments[0].Uri)
	require.Equal(t, "https://cdn.example.com/streams/other/media_w1_2.ts", segments[2].Uri)
}

func TestResolveMedia(t *testing.T) {
	server := &fakeServer{bodies: map[string]string{
		base + "chunklist.m3u8": mediaManifest,
	}}
	segments, err := Resolver{Fetch: server.fetch}.Resolve(context.Background(), base+"chunklist.m3u8")
	require.NoError(t, err)
	require.Len(t, segments, 3)
	require.Equal(t, base+"media_w1_0.ts", segments[0].Uri)
}

func TestResolveEmptyMaster(t *testing.T) {
	master := "#EXTM3U\n#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"audio\",NAME=\"it\",URI=\"audio.m3u8\"\n"
	server := &fakeServer{bodies: map[string]string{base + "manifest.m3u8": master}}

	segments, err := Resolver{Fetch: server.fetch}.Resolve(context.Background(), base+"manifest.m3u8")
	require.NoError(t, err)
	require.Empty(t, segments)
}

func TestResolveTooDeep(t *testing.T) {
	server := &fakeServer{bodies: map[string]string{
		base + "manifest.m3u8":             masterManifest,
		base + "chunklist_w1_b400000.m3u8": masterManifest,
	}}
	_, err := Resolver{Fetch: server.fetch}.Resolve(context.Background(), base+"manifest.m3u8")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Len(t, server.calls, MaxDepth)
}

func TestResolveMalformed(t *testing.T) {
	server := &fakeServer{bodies: map[string]string{base + "manifest.m3u8": "<html>not a manifest</html>"}}
	_, err := Resolver{Fetch: server.fetch}.Resolve(context.Background(), base+"manifest.m3u8")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, base+"manifest.m3u8", parseErr.Url)
}

func TestResolveFetchError(t *testing.T) {
	failure := errors.New("connection reset")
	resolver := Resolver{Fetch: func(ctx context.Context, target string) ([]byte, error) {
		return nil, failure
	}}
	_, err := resolver.Resolve(context.Background(), base+"manifest.m3u8")
	require.ErrorIs(t, err, failure)

	var parseErr *ParseError
	require.False(t, errors.As(err, &parseErr))
}
