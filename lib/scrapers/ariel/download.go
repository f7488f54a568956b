package ariel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sebastian/lib/ledger"
	"sebastian/lib/scrapers/ariel/core"
	"sebastian/lib/scrapers/ariel/download"
	"sebastian/lib/scrapers/ariel/page"
	"sebastian/lib/scrapers/ariel/progress"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Download downloads a single item while `sink` renders its progress, it
// returns the item's path and size.
func (n *Navigator) Download(ctx context.Context, item page.ContentItem, root string, sink progress.Sink) (string, int64, error) {
	events := make(chan progress.Event, 16)

	var path string
	var total int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		path, err = n.engine.Download(groupCtx, item, root, events)
		return err
	})
	group.Go(func() error {
		total = progress.Consume(events, sink)
		return nil
	})

	err := group.Wait()
	if err != nil {
		sink.Abort()
		return "", total, err
	}
	sink.Finish()
	return path, total, nil
}

// SinkFactory creates the progress sink of an item about to be downloaded.
type SinkFactory func(item page.ContentItem, size download.Size) progress.Sink

type Downloaded struct {
	Item  page.ContentItem
	Path  string
	Bytes int64
}

type Failure struct {
	Item page.ContentItem
	Err  error
}

type Report struct {
	Downloaded []Downloaded
	// Skipped were downloaded by an earlier run and are still on disk.
	Skipped []page.ContentItem
	Failed  []Failure
}

func (n *Navigator) alreadyDownloaded(ctx context.Context, item page.ContentItem) bool {
	if n.ledger == nil {
		return false
	}
	entry, ok, err := n.ledger.Get(ctx, item.Url)
	if err != nil {
		n.tel.ReportBroken("navigator.download-all", fmt.Errorf("read ledger: %w", err))
		return false
	}
	if !ok {
		return false
	}
	_, err = os.Stat(entry.Path)
	return err == nil
}

// DownloadAll downloads `items` one at a time. A failed item is recorded in
// the report and the rest still run, only a cancellation or a rejected login
// stops the whole run.
func (n *Navigator) DownloadAll(ctx context.Context, items []page.ContentItem, root string, newSink SinkFactory) (Report, error) {
	ctx, span := tracer.Start(ctx, "navigator:DownloadAll")
	defer span.End()

	if newSink == nil {
		newSink = func(page.ContentItem, download.Size) progress.Sink {
			return &progress.Counter{}
		}
	}

	report := Report{
		Downloaded: []Downloaded{},
		Skipped:    []page.ContentItem{},
		Failed:     []Failure{},
	}
	for _, item := range items {
		err := ctx.Err()
		if err != nil {
			return report, err
		}

		if n.alreadyDownloaded(ctx, item) {
			report.Skipped = append(report.Skipped, item)
			continue
		}

		size, err := n.engine.ProbeSize(ctx, item)
		if err != nil {
			n.tel.ReportWarning("navigator.probe-size", fmt.Errorf("%s: %w", item.Url, err))
			size = download.Size{Known: false}
		}

		path, bytes, err := n.Download(ctx, item, root, newSink(item, size))
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			var authErr *core.AuthError
			if errors.As(err, &authErr) {
				return report, err
			}

			n.tel.ReportWarning("navigator.download-all", fmt.Errorf("%s: %w", item.Url, err))
			report.Failed = append(report.Failed, Failure{Item: item, Err: err})
			continue
		}

		report.Downloaded = append(report.Downloaded, Downloaded{
			Item:  item,
			Path:  path,
			Bytes: bytes,
		})
		if n.ledger != nil {
			err = n.ledger.Record(ctx, ledger.Entry{
				SourceUrl: item.Url,
				Path:      path,
				Bytes:     bytes,
			})
			if err != nil {
				n.tel.ReportBroken("navigator.download-all", fmt.Errorf("record %s: %w", item.Url, err))
			}
		}
	}

	span.SetAttributes(
		attribute.Int("downloaded", len(report.Downloaded)),
		attribute.Int("skipped", len(report.Skipped)),
		attribute.Int("failed", len(report.Failed)),
	)
	return report, nil
}
