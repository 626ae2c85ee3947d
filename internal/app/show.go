package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

// Show prints the most recent stored snapshots.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	snaps, err := store.ListSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(a.Out, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tExchange\tContracts\tSaved (UTC)")
	for _, snap := range snaps {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\n",
			snap.Date,
			snap.Exchange,
			snap.TotalContracts,
			snap.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	return writer.Flush()
}
