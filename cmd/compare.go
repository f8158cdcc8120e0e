package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/streambazaar/streambazaar/market"
	"github.com/streambazaar/streambazaar/market/metrics"
	"github.com/streambazaar/streambazaar/market/workload"
)

var compareRounds int // Rounds per strategy

// compareCmd runs every registered strategy on the same workload
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run every strategy on the same workload and tabulate their metrics",
	Run: func(cmd *cobra.Command, args []string) {
		if compareRounds <= 0 {
			logrus.Fatalf("--rounds must be positive, got %d", compareRounds)
		}
		in, err := loadInputs(cmd.Flags().Changed("seed"))
		if err != nil {
			logrus.Fatalf("Loading inputs: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := compareStrategies(ctx, in, market.StrategyNames(), compareRounds)
		if err != nil {
			logrus.Fatalf("Compare failed: %v", err)
		}
		printComparison(os.Stdout, results)
	},
}

// strategyResult is one strategy's metrics after a comparison run.
type strategyResult struct {
	Name    string
	Stats   runStats
	Metrics map[string]float64
}

// compareStrategies runs each named strategy concurrently, each with its own
// generator over the same workload, so every strategy sees identical demand.
// Results are in names order.
func compareStrategies(ctx context.Context, in inputs, names []string, n int) ([]strategyResult, error) {
	results := make([]strategyResult, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			strategy, err := buildStrategy(name, in)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			gen, err := workload.NewGenerator(in.workload, in.catalog.ListDevices())
			if err != nil {
				return err
			}
			d, err := newDriver(strategy, gen, in.config)
			if err != nil {
				return err
			}
			d.initializeTenants()
			stats, err := d.run(ctx, n)
			if err != nil {
				return err
			}
			results[i] = strategyResult{Name: name, Stats: stats, Metrics: strategy.GetMetrics()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printComparison(out io.Writer, results []strategyResult) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 12, 1, 3, ' ', 0)
	fmt.Fprint(w, "METRIC")
	for _, r := range results {
		fmt.Fprintf(w, "\t%s", r.Name)
	}
	fmt.Fprintln(w)
	for _, metric := range metrics.SortedNames(results[0].Metrics) {
		fmt.Fprint(w, metric)
		for _, r := range results {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[metric])
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func init() {
	compareCmd.Flags().IntVar(&compareRounds, "rounds", 10, "Number of rounds per strategy")

	rootCmd.AddCommand(compareCmd)
}
