package ledger

import (
	"context"
	"path/filepath"
	"sebastian/internal/components/chrono"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	now := time.Date(2024, time.March, 4, 10, 30, 0, 0, time.UTC)
	ledger, err := Open(":memory:", chrono.FixedImpl{Instant: now})
	require.NoError(t, err)
	defer ledger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, ok, err := ledger.Get(ctx, "https://a.ctu.unimi.it/files/slides.pdf")
		require.NoError(t, err)
		require.False(t, ok)

		entries, err := ledger.List(ctx)
		require.NoError(t, err)
		require.Empty(t, entries)
	}
	{
		err := ledger.Record(ctx, Entry{
			SourceUrl: "https://a.ctu.unimi.it/files/slides.pdf",
			Path:      "/tmp/out/slides.pdf",
			Bytes:     15,
		})
		require.NoError(t, err)
		err = ledger.Record(ctx, Entry{
			SourceUrl:    "https://a.ctu.unimi.it/files/old.pdf",
			Path:         "/tmp/out/old.pdf",
			Bytes:        3,
			DownloadedAt: now.Add(-time.Hour),
		})
		require.NoError(t, err)

		_, ok, err := ledger.Get(ctx, "https://a.ctu.unimi.it/files/slides.pdf")
		require.NoError(t, err)
		require.True(t, ok)

		entries, err := ledger.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, "https://a.ctu.unimi.it/files/old.pdf", entries[0].SourceUrl)
		require.True(t, entries[1].DownloadedAt.Equal(now))
	}
	{
		// recording the same url again replaces the entry
		err := ledger.Record(ctx, Entry{
			SourceUrl: "https://a.ctu.unimi.it/files/slides.pdf",
			Path:      "/tmp/elsewhere/slides.pdf",
			Bytes:     16,
		})
		require.NoError(t, err)

		entry, ok, err := ledger.Get(ctx, "https://a.ctu.unimi.it/files/slides.pdf")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "/tmp/elsewhere/slides.pdf", entry.Path)
		require.Equal(t, int64(16), entry.Bytes)

		entries, err := ledger.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
	}
}

func TestLedgerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.db")
	ctx := context.Background()

	ledger, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, ledger.Record(ctx, Entry{SourceUrl: "https://x", Path: "/x", Bytes: 1}))
	require.NoError(t, ledger.Close())

	ledger, err = Open(path, nil)
	require.NoError(t, err)
	defer ledger.Close()

	entry, ok, err := ledger.Get(ctx, "https://x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/x", entry.Path)
}
