package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aerotrack/flight-registry-server/internal/provider"
	"github.com/aerotrack/flight-registry-server/internal/service"
	"github.com/aerotrack/flight-registry-server/internal/status"
)

func newLookupCmd() *cobra.Command {
	lookupCmd := &cobra.Command{
		Use:   "lookup FLIGHT [FLIGHT...]",
		Short: "Resolve flights once against the configured providers",
		Long: `Resolve one or more flights against the configured providers and print the
reconciled status as a table. Nothing is tracked; each flight is looked up once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runLookup,
	}

	lookupCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	return lookupCmd
}

func runLookup(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	aggregator, err := provider.NewAggregator(provider.NewSimulators(cfg.GetProviders()))
	if err != nil {
		return fmt.Errorf("failed to create provider aggregator: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rows := lookupFlights(ctx, aggregator, args)
	return renderLookup(cmd.OutOrStdout(), rows)
}

// lookupRow is one line of lookup output
type lookupRow struct {
	flightNumber string
	status       string
	departure    *time.Time
	arrival      *time.Time
	err          string
}

// lookupFlights resolves every flight concurrently and returns the rows in argument order
func lookupFlights(ctx context.Context, aggregator provider.Aggregator, flightNumbers []string) []lookupRow {
	rows := make([]lookupRow, len(flightNumbers))

	var g errgroup.Group
	for i, raw := range flightNumbers {
		g.Go(func() error {
			id := service.NormalizeFlightNumber(raw)
			rows[i].flightNumber = id
			if id == "" {
				rows[i].err = service.ErrInvalidInput.Error()
				return nil
			}

			times, err := aggregator.Resolve(ctx, id)
			if err != nil {
				rows[i].err = err.Error()
				return nil
			}

			rows[i].status = status.Classify(times.ActualDepartureTime, times.ActualArrivalTime).String()
			rows[i].departure = times.ActualDepartureTime
			rows[i].arrival = times.ActualArrivalTime
			return nil
		})
	}
	_ = g.Wait()

	return rows
}

func renderLookup(w io.Writer, rows []lookupRow) error {
	table := tablewriter.NewWriter(w)
	table.Header("Flight", "Status", "Departure", "Arrival", "Error")

	for _, row := range rows {
		if err := table.Append([]string{
			row.flightNumber,
			row.status,
			formatTime(row.departure),
			formatTime(row.arrival),
			row.err,
		}); err != nil {
			return fmt.Errorf("failed to add row for %s: %w", row.flightNumber, err)
		}
	}

	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
