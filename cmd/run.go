package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/streambazaar/streambazaar/market"
	_ "github.com/streambazaar/streambazaar/market/baseline"
	"github.com/streambazaar/streambazaar/market/metrics"
	"github.com/streambazaar/streambazaar/market/trace"
	"github.com/streambazaar/streambazaar/market/workload"
)

var (
	// run flags
	rounds         int    // Number of rounds to drive
	strategyName   string // Strategy to run
	traceLevel     string // Round trace verbosity
	realtime       bool   // Pace rounds by auction.auction_interval
	metricsAddr    string // Address to serve Prometheus metrics on; empty disables
	replenishEvery int    // Top tenants up every N rounds; 0 disables
)

// runCmd drives the chosen strategy over a generated workload
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the market (or a baseline) over a synthetic workload",
	Run: func(cmd *cobra.Command, args []string) {
		if rounds <= 0 {
			logrus.Fatalf("--rounds must be positive, got %d", rounds)
		}
		if !market.IsValidStrategy(strategyName) {
			logrus.Fatalf("Unknown strategy %q; valid strategies: %v", strategyName, market.StrategyNames())
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q", traceLevel)
		}
		in, err := loadInputs(cmd.Flags().Changed("seed"))
		if err != nil {
			logrus.Fatalf("Loading inputs: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := runOptions{
			strategy:       strategyName,
			rounds:         rounds,
			traceLevel:     trace.TraceLevel(traceLevel),
			replenishEvery: replenishEvery,
		}
		if realtime {
			opts.interval = in.config.Auction.Interval
		}
		if metricsAddr != "" {
			reg := prometheus.NewRegistry()
			opts.registry = reg
			srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
			go func() {
				logrus.Infof("Serving metrics on %s/metrics", metricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logrus.Errorf("Metrics server: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		start := time.Now()
		if err := runMarket(ctx, in, opts, os.Stdout); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		logrus.Infof("Run complete in %s.", time.Since(start))
	},
}

// runOptions are the run flags after validation.
type runOptions struct {
	strategy       string
	rounds         int
	traceLevel     trace.TraceLevel
	interval       time.Duration
	replenishEvery int
	registry       prometheus.Registerer // nil disables Prometheus export
}

// buildStrategy constructs the named strategy. The market scheduler gets
// opts; baselines take none.
func buildStrategy(name string, in inputs, opts ...market.SchedulerOption) (market.Strategy, error) {
	if name == "" || name == market.StrategyStreamBazaar {
		s, err := market.NewScheduler(in.config, in.catalog, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return market.NewStrategy(name, in.config, in.catalog)
}

// runMarket drives one strategy and writes the round reports, the metrics,
// and the trace summary to out.
func runMarket(ctx context.Context, in inputs, opts runOptions, out io.Writer) error {
	mt := trace.NewMarketTrace(opts.traceLevel)
	var recorder metrics.Recorder = metrics.NewTracker()
	if opts.registry != nil {
		recorder = metrics.Multi{recorder, metrics.NewPrometheusRecorder(opts.registry)}
	}
	strategy, err := buildStrategy(opts.strategy, in, market.WithMetrics(recorder), market.WithTrace(mt))
	if err != nil {
		return err
	}
	if _, isMarket := strategy.(*market.Scheduler); !isMarket {
		if opts.registry != nil {
			logrus.Warnf("Prometheus export is only wired for %s; %s metrics are printed only", market.StrategyStreamBazaar, strategy.Name())
		}
		if mt.Enabled() {
			logrus.Warnf("Round tracing is only recorded by %s", market.StrategyStreamBazaar)
		}
	}

	gen, err := workload.NewGenerator(in.workload, in.catalog.ListDevices())
	if err != nil {
		return err
	}
	d, err := newDriver(strategy, gen, in.config)
	if err != nil {
		return err
	}
	d.out = out
	d.interval = opts.interval
	d.replenishEvery = opts.replenishEvery
	d.initializeTenants()

	fmt.Fprintf(out, "Strategy: %s\n", strategy.Name())
	fmt.Fprintf(out, "Available devices: %v\n", in.catalog.ListDevices())
	stats, err := d.run(ctx, opts.rounds)
	if err != nil {
		return err
	}

	printStats(out, stats)
	printMetrics(out, strategy.Name(), strategy.GetMetrics())
	if mt.Enabled() {
		printTraceSummary(out, trace.Summarize(mt))
	}
	return nil
}

func printStats(w io.Writer, s runStats) {
	fmt.Fprintf(w, "\n=== Run Summary ===\n")
	fmt.Fprintf(w, "Rounds: %d (skipped %d)\n", s.Rounds, s.SkippedRounds)
	fmt.Fprintf(w, "Bids: %d\n", s.Bids)
	fmt.Fprintf(w, "Allocations: %d\n", s.Allocations)
	tenants := make([]string, 0, len(s.Granted))
	for t := range s.Granted {
		tenants = append(tenants, t)
	}
	sort.Strings(tenants)
	for _, t := range tenants {
		fmt.Fprintf(w, "  %s granted %.2f units\n", t, s.Granted[t])
	}
}

func printMetrics(w io.Writer, name string, m map[string]float64) {
	fmt.Fprintf(w, "\n=== %s Metrics ===\n", name)
	for _, k := range metrics.SortedNames(m) {
		fmt.Fprintf(w, "%-40s %.4f\n", k, m[k])
	}
}

func printTraceSummary(w io.Writer, s *trace.Summary) {
	fmt.Fprintf(w, "\n=== Trace Summary ===\n")
	fmt.Fprintf(w, "Rounds traced: %d (skipped %d)\n", s.Rounds, s.SkippedRounds)
	fmt.Fprintf(w, "Winners: %d of %d bids (%.2f per round)\n", s.TotalWinners, s.TotalBids, s.MeanWinnersPerRound)
	for _, reason := range sortedKeys(s.RejectionsByReason) {
		fmt.Fprintf(w, "  rejected (%s): %d\n", reason, s.RejectionsByReason[reason])
	}
	for _, tenant := range sortedKeys(s.WinsByTenant) {
		fmt.Fprintf(w, "  %s won %d, spent $%.2f\n", tenant, s.WinsByTenant[tenant], s.SpendByTenant[tenant])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	runCmd.Flags().IntVar(&rounds, "rounds", 5, "Number of auction rounds to run")
	runCmd.Flags().StringVar(&strategyName, "strategy", market.StrategyStreamBazaar, "Scheduling strategy (streambazaar, flink-default, ds2, capsys, talos)")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Round trace level (none, rounds)")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "Pace rounds by the configured auction interval")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().IntVar(&replenishEvery, "replenish-every", 0, "Top every tenant up with currency every N rounds (0 disables)")

	rootCmd.AddCommand(runCmd)
}
