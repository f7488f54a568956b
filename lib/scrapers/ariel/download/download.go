package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sebastian/internal/assert"
	"sebastian/internal/components/telemetry"
	"sebastian/lib/scrapers/ariel/core"
	"sebastian/lib/scrapers/ariel/manifest"
	"sebastian/lib/scrapers/ariel/page"
	"sebastian/lib/scrapers/ariel/progress"
	"sebastian/lib/textutil"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sebastian.lib.scrapers.ariel.download")

// ErrSessionExpired is returned when the login form keeps being served in
// place of the content after MaxReauth logins.
var ErrSessionExpired = fmt.Errorf("session expired")

const DefaultMaxReauth = 3

// Size is the byte size of an item, stream sizes are never computed.
type Size struct {
	Bytes int64
	Known bool
}

func (s Size) String() string {
	if !s.Known {
		return "unknown"
	}
	return humanize.Bytes(uint64(s.Bytes))
}

type Engine struct {
	Transport core.Transport
	// MaxReauth is how many times the session is renewed for a single
	// fetch, it defaults to DefaultMaxReauth.
	MaxReauth int

	tel telemetry.API
}

func NewEngine(transport core.Transport, tel telemetry.API) *Engine {
	assert.NotNil(transport)
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return &Engine{
		Transport: transport,
		MaxReauth: DefaultMaxReauth,
		tel:       telemetry.NewScopedAPI("download_engine", tel),
	}
}

func (e *Engine) maxReauth() int {
	if e.MaxReauth <= 0 {
		return DefaultMaxReauth
	}
	return e.MaxReauth
}

func (e *Engine) ProbeSize(ctx context.Context, item page.ContentItem) (Size, error) {
	if item.Kind == page.Stream {
		return Size{Known: false}, nil
	}
	size, err := e.Transport.ProbeSize(ctx, item.Url)
	if err != nil {
		return Size{}, err
	}
	return Size{Bytes: size, Known: true}, nil
}

// fetch renews the session whenever the login form is served instead of
// the requested payload.
func (e *Engine) fetch(ctx context.Context, target string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := e.Transport.FetchBytes(ctx, target)
		if err != nil {
			return nil, err
		}
		if !page.IsLoginPage(body) {
			return body, nil
		}
		if attempt >= e.maxReauth() {
			return nil, fmt.Errorf("%w: %s still served the login page after %d logins", ErrSessionExpired, target, attempt)
		}

		e.tel.ReportWarning("engine.fetch", fmt.Errorf("session expired while fetching %s", target))
		err = e.Transport.Reauthenticate(ctx)
		if err != nil {
			return nil, fmt.Errorf("renew session: %w", err)
		}
	}
}

// Dir is the directory an item is downloaded into.
func Dir(root string, item page.ContentItem) string {
	return filepath.Join(
		root,
		textutil.SanitizePathSegment(item.Site),
		textutil.SanitizePathSegment(item.Ambient),
		textutil.SanitizePathSegment(item.Thread),
	)
}

func send(ctx context.Context, sink chan<- progress.Event, event progress.Event) error {
	select {
	case sink <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Download writes `item` under `root` and returns its path. A progress event
// is sent to `sink` for every chunk written, `sink` is closed before
// Download returns.
func (e *Engine) Download(ctx context.Context, item page.ContentItem, root string, sink chan<- progress.Event) (string, error) {
	defer close(sink)

	ctx, span := tracer.Start(ctx, "engine:Download")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", item.Url),
		attribute.String("kind", item.Kind.String()),
	)

	var path string
	var err error
	switch item.Kind {
	case page.Stream:
		path, err = e.downloadStream(ctx, item, root, sink)
	default:
		path, err = e.downloadGeneric(ctx, item, root, sink)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download")
		return "", err
	}
	return path, nil
}

func (e *Engine) downloadGeneric(ctx context.Context, item page.ContentItem, root string, sink chan<- progress.Event) (string, error) {
	body, err := e.fetch(ctx, item.Url)
	if err != nil {
		return "", err
	}

	dir := Dir(root, item)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, GenericFilename(item))

	out, err := newPartialFile(path)
	if err != nil {
		return "", err
	}
	defer out.discard()

	_, err = out.Write(body)
	if err != nil {
		return "", err
	}
	err = out.commit()
	if err != nil {
		return "", err
	}

	e.tel.ReportDebug("downloaded", "path", path, "bytes", len(body))
	return path, send(ctx, sink, progress.Event{Item: item.Url, Bytes: int64(len(body))})
}

func (e *Engine) downloadStream(ctx context.Context, item page.ContentItem, root string, sink chan<- progress.Event) (string, error) {
	resolver := manifest.Resolver{Fetch: e.fetch}
	segments, err := resolver.Resolve(ctx, item.Url)
	if err != nil {
		return "", err
	}

	dir := Dir(root, item)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	name, err := StreamFilename(item)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)

	out, err := newPartialFile(path)
	if err != nil {
		return "", err
	}
	defer out.discard()

	// segments are appended in playback order, they cannot be reordered later
	for i, segment := range segments {
		err = ctx.Err()
		if err != nil {
			return "", err
		}

		body, err := e.fetch(ctx, segment.Uri)
		if err != nil {
			return "", fmt.Errorf("segment %d of %d: %w", i+1, len(segments), err)
		}
		_, err = out.Write(body)
		if err != nil {
			return "", err
		}
		err = send(ctx, sink, progress.Event{Item: item.Url, Bytes: int64(len(body))})
		if err != nil {
			return "", err
		}
	}

	err = out.commit()
	if err != nil {
		return "", err
	}
	e.tel.ReportDebug("downloaded", "path", path, "segments", len(segments))
	return path, nil
}
