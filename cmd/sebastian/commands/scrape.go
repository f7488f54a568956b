package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sebastian/lib/scrapers/ariel"
	"sebastian/lib/scrapers/ariel/download"
	"sebastian/lib/scrapers/ariel/page"
	"sebastian/lib/scrapers/ariel/progress"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeOutput string
	scrapeDb     string
	scrapeSelect string
	scrapeAll    bool
	scrapeList   bool
	scrapeSizes  bool
)

func init() {
	flags := scrapeCmd.Flags()
	flags.StringVarP(&scrapeOutput, "output", "o", "", "The directory to download into, overrides the config.")
	flags.StringVar(&scrapeDb, "db", "", "The ledger of finished downloads, overrides the config.")
	flags.StringVarP(&scrapeSelect, "select", "s", "", "The items to download, like 1,3-5.")
	flags.BoolVar(&scrapeAll, "all", false, "Download every item found.")
	flags.BoolVar(&scrapeList, "list", false, "Only list the items found.")
	flags.BoolVar(&scrapeSizes, "sizes", false, "Ask the portal for the size of every item before listing it.")
	scrapeCmd.MarkFlagsMutuallyExclusive("select", "all", "list")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url] [--select <1,3-5> | --all | --list]",
	Short: "Crawls a course site (or the whole portal) and downloads its material.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if scrapeOutput != "" {
			cfg.Output = scrapeOutput
		}
		ledgerPath := cfg.Ledger
		if scrapeDb != "" {
			ledgerPath = scrapeDb
		}

		s, err := openSession(ctx, cfg, ledgerPath)
		if err != nil {
			return err
		}
		defer s.Close()

		seed := ""
		if len(args) > 0 {
			seed = args[0]
		}
		start := time.Now()
		result, err := s.Navigator.Crawl(ctx, seed)
		if err != nil {
			return err
		}
		for _, omission := range result.Omissions {
			slog.Warn("skipped page", "url", omission.Url, "parent", omission.Parent, "err", omission.Err)
		}
		slog.Info(
			"crawl finished",
			"pages", len(result.Pages),
			"items", len(result.Items),
			"skipped", len(result.Omissions),
			"seconds", time.Since(start).Seconds(),
		)

		choices := ariel.Selectable(result.Items)
		if len(choices) == 0 {
			slog.Info("nothing to download")
			return nil
		}

		var sizes map[string]download.Size
		if scrapeSizes {
			sizes = probeSizes(ctx, s.Navigator, choices)
		}
		renderChoices(cmd.OutOrStdout(), choices, sizes)
		if scrapeList {
			return nil
		}

		picked, err := selectChoices(cmd, choices)
		if err != nil {
			return err
		}
		if len(picked) == 0 {
			slog.Info("nothing selected")
			return nil
		}
		items := make([]page.ContentItem, len(picked))
		for i, choice := range picked {
			items[i] = choice.Item
		}

		bars := cmd.ErrOrStderr()
		report, err := s.Navigator.DownloadAll(ctx, items, cfg.Output, func(item page.ContentItem, size download.Size) progress.Sink {
			var total int64
			if size.Known {
				total = size.Bytes
			}
			return progress.NewBar(bars, item.Name, total)
		})
		renderReport(cmd.OutOrStdout(), report)
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d of %d downloads failed", len(report.Failed), len(items))
		}
		return nil
	},
}

func probeSizes(ctx context.Context, navigator *ariel.Navigator, choices []ariel.Choice) map[string]download.Size {
	sizes := make(map[string]download.Size, len(choices))
	for _, choice := range choices {
		size, err := navigator.ProbeSize(ctx, choice.Item)
		if err != nil {
			slog.Warn("failed to probe size", "url", choice.Item.Url, "err", err)
			continue
		}
		sizes[choice.Item.Url] = size
	}
	return sizes
}

func renderChoices(w io.Writer, choices []ariel.Choice, sizes map[string]download.Size) {
	t := newTable(w)
	header := table.Row{"#", "Site", "Ambient", "Thread", "Name", "Kind"}
	if sizes != nil {
		header = append(header, "Size")
	}
	t.AppendHeader(header)

	for _, choice := range choices {
		item := choice.Item
		row := table.Row{choice.Index, item.Site, item.Ambient, item.Thread, item.Name, item.Kind.String()}
		if sizes != nil {
			size, ok := sizes[item.Url]
			if ok {
				row = append(row, size.String())
			} else {
				row = append(row, "?")
			}
		}
		t.AppendRow(row)
	}
	t.Render()
}

// selectChoices resolves the choices to download from the flags, asking on
// stdin when none were given.
func selectChoices(cmd *cobra.Command, choices []ariel.Choice) ([]ariel.Choice, error) {
	if scrapeAll {
		return choices, nil
	}

	selection := scrapeSelect
	if selection == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Select the items to download (ex. 1,3-5): ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		selection = strings.TrimSpace(line)
	}
	return ariel.Pick(choices, selection)
}

func renderReport(w io.Writer, report ariel.Report) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Status", "Name", "Detail"})

	var total int64
	for _, downloaded := range report.Downloaded {
		total += downloaded.Bytes
		t.AppendRow(table.Row{"downloaded", downloaded.Item.Name, downloaded.Path})
	}
	for _, item := range report.Skipped {
		t.AppendRow(table.Row{"skipped", item.Name, "already downloaded"})
	}
	for _, failure := range report.Failed {
		t.AppendRow(table.Row{"failed", failure.Item.Name, failure.Err.Error()})
	}
	t.AppendFooter(table.Row{"", "total", humanize.Bytes(uint64(total))})
	t.Render()
}
