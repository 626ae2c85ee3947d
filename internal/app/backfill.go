package app

import (
	"context"
	"fmt"
	"sort"

	"index-early-alerts/internal/service"
)

// Backfill saves any missing snapshot for the given day, yesterday by default.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := a.newService(store, nil)
	if err != nil {
		return err
	}

	var report service.CaptureReport
	if opts.Date != nil {
		report, err = svc.CaptureMissing(ctx, *opts.Date)
	} else {
		report, err = svc.Backfill(ctx)
	}
	if err != nil {
		return err
	}

	for _, exchange := range report.Present {
		fmt.Fprintf(a.Out, "[OK] %s already saved for %s\n", exchange, report.Date)
	}
	saved := make([]string, 0, len(report.Saved))
	for exchange := range report.Saved {
		saved = append(saved, exchange)
	}
	sort.Strings(saved)
	for _, exchange := range saved {
		fmt.Fprintf(a.Out, "[BACKFILL] %s saved %d contracts for %s\n", exchange, report.Saved[exchange], report.Date)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("backfill %s: %d exchange(s) failed", report.Date, len(report.Failed))
	}
	return nil
}
