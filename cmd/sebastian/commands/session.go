package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sebastian/internal/components/chrono"
	"sebastian/internal/components/telemetry"
	"sebastian/lib/ledger"
	"sebastian/lib/restyutil"
	"sebastian/lib/scrapers/ariel"
	"sebastian/lib/scrapers/ariel/core"
)

var dumpHttp string

func init() {
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http message to this directory (requires --verbose).")
}

type session struct {
	Navigator *ariel.Navigator
	Ledger    *ledger.Ledger
}

func (s session) Close() {
	if s.Ledger == nil {
		return
	}
	err := s.Ledger.Close()
	if err != nil {
		slog.Warn("failed to close ledger", "err", err)
	}
}

// openSession creates a logged in navigator, `ledgerPath` can be empty to
// run without a ledger.
func openSession(ctx context.Context, cfg Config, ledgerPath string) (session, error) {
	tel := telemetry.SlogAPI{}

	var output restyutil.InstrumentOutput
	if dumpHttp != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return session{}, err
		}
		slog.Debug("dumping http messages", "dir", fsOutput.Directory())
		output = fsOutput
	}

	client, err := core.NewClient(core.ClientOptions{
		Sitemap:           cfg.Sitemap,
		BypassCloudflare:  cfg.BypassCloudflare,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Output:            output,
		Telemetry:         tel,
	})
	if err != nil {
		return session{}, fmt.Errorf("create client: %w", err)
	}

	var l *ledger.Ledger
	if ledgerPath != "" {
		l, err = ledger.Open(ledgerPath, chrono.NewStandardImpl(nil))
		if err != nil {
			return session{}, fmt.Errorf("open ledger: %w", err)
		}
	}

	navigator, err := ariel.NewNavigator(client, ariel.Options{
		Sitemap:   cfg.Sitemap,
		Ledger:    l,
		Telemetry: tel,
	})
	if err != nil {
		s := session{Ledger: l}
		s.Close()
		return session{}, err
	}
	s := session{Navigator: navigator, Ledger: l}

	slog.Info("logging in", "username", cfg.Username)
	err = navigator.Login(ctx, cfg.credentials())
	if err != nil {
		s.Close()
		return session{}, err
	}
	return s, nil
}
