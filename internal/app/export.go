package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"index-early-alerts/internal/analytics"
	"index-early-alerts/internal/model"
)

// Export compares two stored days of one exchange and renders the moves as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	exchange := strings.ToUpper(strings.TrimSpace(opts.Exchange))
	if exchange == "" {
		return errors.New("--exchange is required")
	}
	for _, d := range []string{opts.From, opts.To} {
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return fmt.Errorf("invalid date %q: %w", d, err)
		}
	}
	if opts.From >= opts.To {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	prior, err := store.GetSnapshot(ctx, opts.From, exchange)
	if err != nil {
		return fmt.Errorf("load %s %s: %w", exchange, opts.From, err)
	}
	current, err := store.GetSnapshot(ctx, opts.To, exchange)
	if err != nil {
		return fmt.Errorf("load %s %s: %w", exchange, opts.To, err)
	}

	moves := analytics.Top(analytics.Compare(&prior, current.Prices()), a.Config.ResolveMaxRows(opts.MaxRows))
	if len(moves) == 0 {
		a.Logger.Info().Str("exchange", exchange).Msg("no comparable contracts for export")
		return nil
	}
	a.Logger.Info().Str("exchange", exchange).Int("rows", len(moves)).Msg("exporting comparison")

	if opts.CSVPath != "" {
		if err := writeComparisonCSV(opts.CSVPath, moves); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		title := fmt.Sprintf("%s %s → %s (%% change)", exchange, opts.From, opts.To)
		if err := writeComparisonPNG(opts.PNGPath, title, moves); err != nil {
			return err
		}
	}

	return nil
}

func writeComparisonCSV(path string, moves []analytics.Comparison) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"symbol", "prior_ltp", "current_ltp", "change", "change_pct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range moves {
		record := []string{
			m.Symbol,
			m.PriorPrice.String(),
			m.CurrentPrice.String(),
			m.Change.StringFixed(2),
			m.ChangePct.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// maxChartBars keeps bar labels legible.
const maxChartBars = 30

func writeComparisonPNG(path, title string, moves []analytics.Comparison) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if len(moves) > maxChartBars {
		moves = moves[:maxChartBars]
	}

	bars := make([]chart.Value, 0, len(moves))
	for _, m := range moves {
		bars = append(bars, chart.Value{
			Label: m.Symbol,
			Value: m.ChangePct.InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:        title,
		Width:        1280,
		Height:       720,
		BarWidth:     24,
		BarSpacing:   6,
		UseBaseValue: true,
		BaseValue:    0,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Bottom: 80},
		},
		XAxis: chart.Style{
			TextRotationDegrees: 90,
		},
		YAxis: chart.YAxis{
			Name: "Change (%)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
