package commands

import (
	"sebastian/internal/components/chrono"
	"sebastian/lib/ledger"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyDb string

func init() {
	historyCmd.Flags().StringVar(&historyDb, "db", "", "The ledger of finished downloads, overrides the config.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--db <path/to/ledger.db>]",
	Short: "Lists the downloads recorded in the ledger, oldest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		path := cfg.Ledger
		if historyDb != "" {
			path = historyDb
		}

		l, err := ledger.Open(path, chrono.NewStandardImpl(nil))
		if err != nil {
			return err
		}
		defer l.Close()

		entries, err := l.List(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Downloaded", "Size", "Path", "Source"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.DownloadedAt.Local().Format(time.DateTime),
				humanize.Bytes(uint64(entry.Bytes)),
				entry.Path,
				entry.SourceUrl,
			})
		}
		t.Render()
		return nil
	},
}
