package app

import (
	"context"
	"fmt"
	"sort"
)

// Fetch performs one live fetch of every exchange and prints how many contracts came back.
func (a *App) Fetch(ctx context.Context) error {
	svc, err := a.newService(nil, nil)
	if err != nil {
		return err
	}

	summary, err := svc.FetchSummary(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(summary.Spot))
	for name := range summary.Spot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.Out, "Raw %-8s Spot: %.2f\n", name, summary.Spot[name])
	}

	fmt.Fprintln(a.Out, "\nFETCH SUMMARY")
	for _, ex := range summary.Exchanges {
		switch {
		case ex.Err != nil:
			fmt.Fprintf(a.Out, "%s → Fetch failed: %v\n", ex.Exchange, ex.Err)
		case ex.Received == 0:
			fmt.Fprintf(a.Out, "%s → No data returned\n", ex.Exchange)
		default:
			fmt.Fprintf(a.Out, "%s → Total Contracts Received: %d (requested %d)\n", ex.Exchange, ex.Received, ex.Requested)
		}
	}
	return nil
}
