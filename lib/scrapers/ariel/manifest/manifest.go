package manifest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/grafov/m3u8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sebastian.lib.scrapers.ariel.manifest")

// MaxDepth is the number of manifests followed for a single resolution, a
// master manifest pointing to a media manifest is the only nesting expected.
const MaxDepth = 2

// Segment is a playable chunk of a stream, Uri is always absolute.
type Segment struct {
	Uri string
}

// Fetcher returns the body of a manifest.
type Fetcher func(ctx context.Context, target string) ([]byte, error)

// ParseError is returned for manifests that cannot be decoded or that nest
// deeper than MaxDepth.
type ParseError struct {
	Url    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest %s: %s: %s", e.Url, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("manifest %s: %s", e.Url, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Resolver struct {
	Fetch Fetcher
}

// Resolve returns the ordered segments of the stream behind `target`. Of a
// master manifest's variants only the first listed is followed.
func (r Resolver) Resolve(ctx context.Context, target string) ([]Segment, error) {
	ctx, span := tracer.Start(ctx, "resolver:Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	segments, err := r.resolve(ctx, target, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve manifest")
		return nil, err
	}
	span.SetAttributes(attribute.Int("segments", len(segments)))
	return segments, nil
}

func (r Resolver) resolve(ctx context.Context, target string, depth int) ([]Segment, error) {
	if depth > MaxDepth {
		return nil, &ParseError{
			Url:    target,
			Reason: fmt.Sprintf("manifests nest deeper than %d", MaxDepth),
		}
	}

	base, err := url.Parse(target)
	if err != nil {
		return nil, &ParseError{Url: target, Reason: "invalid url", Err: err}
	}
	body, err := r.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, &ParseError{Url: target, Reason: "could not decode", Err: err}
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 {
			return []Segment{}, nil
		}
		variant, err := base.Parse(master.Variants[0].URI)
		if err != nil {
			return nil, &ParseError{Url: target, Reason: "invalid variant uri", Err: err}
		}
		return r.resolve(ctx, variant.String(), depth+1)
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		segments := []Segment{}
		for _, s := range media.Segments {
			// the segment buffer is preallocated, unused slots are nil
			if s == nil {
				continue
			}
			uri, err := base.Parse(s.URI)
			if err != nil {
				return nil, &ParseError{Url: target, Reason: "invalid segment uri", Err: err}
			}
			segments = append(segments, Segment{Uri: uri.String()})
		}
		return segments, nil
	default:
		return nil, &ParseError{Url: target, Reason: "unknown playlist type"}
	}
}
