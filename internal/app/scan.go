package app

import (
	"context"
	"fmt"
	"time"

	"index-early-alerts/internal/alerting"
)

// Scan runs one momentum scan. With DryRun the alert text is printed instead of sent.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if !opts.DryRun {
		notifier, closeNotifier := a.newNotifier()
		defer closeNotifier()
		svc, err := a.newService(store, notifier)
		if err != nil {
			return err
		}
		return svc.MorningMomentum(ctx)
	}

	svc, err := a.newService(store, nil)
	if err != nil {
		return err
	}
	reports, err := svc.Scan(ctx)
	if err != nil {
		return err
	}
	for _, report := range reports {
		if report.PriorDate == "" {
			fmt.Fprintf(a.Out, "%s → no prior snapshot\n\n", report.Exchange)
			continue
		}
		if len(report.Risers) == 0 {
			fmt.Fprintf(a.Out, "%s → no rising contracts vs %s\n\n", report.Exchange, report.PriorDate)
			continue
		}
		note := report.Notification(a.Config.Momentum.TopN, a.Config.Alerting.Channels, time.Now())
		fmt.Fprintln(a.Out, alerting.RenderTable(note))
		fmt.Fprintln(a.Out)
	}
	return nil
}
