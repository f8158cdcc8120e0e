package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/streambazaar/streambazaar/market"
	"github.com/streambazaar/streambazaar/market/catalog"
	"github.com/streambazaar/streambazaar/market/workload"
)

var (
	// Shared CLI flags
	logLevel     string // Log verbosity level
	configPath   string // Market config YAML; empty = built-in defaults
	devicesPath  string // Device catalog YAML; empty = built-in catalog
	workloadPath string // Workload YAML; empty = built-in three-tenant workload
	seed         int64  // Overrides the workload seed when set
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "streambazaar",
	Short: "Market-based resource scheduler for multi-tenant stream processing",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// inputs is everything loaded from the shared flags.
type inputs struct {
	config   market.Config
	catalog  *catalog.Catalog
	workload *workload.Spec
}

// loadInputs reads the config, catalog, and workload files named by the
// shared flags, falling back to built-in defaults for any left empty.
// seedChanged reports whether --seed was given explicitly.
func loadInputs(seedChanged bool) (inputs, error) {
	in := inputs{config: market.DefaultConfig()}
	var err error
	if configPath != "" {
		if in.config, err = market.LoadConfig(configPath); err != nil {
			return inputs{}, err
		}
	}
	in.catalog = catalog.DefaultCatalog()
	if devicesPath != "" {
		if in.catalog, err = catalog.LoadCatalog(devicesPath); err != nil {
			return inputs{}, err
		}
	}
	in.workload = workload.DefaultSpec()
	if workloadPath != "" {
		if in.workload, err = workload.LoadSpec(workloadPath); err != nil {
			return inputs{}, err
		}
	}
	if seedChanged {
		logrus.Infof("CLI --seed %d overrides workload seed %d", seed, in.workload.Seed)
		in.workload.Seed = seed
	}
	return in, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to market config YAML (default: built-in parameters)")
	rootCmd.PersistentFlags().StringVar(&devicesPath, "devices", "", "Path to device catalog YAML (default: built-in catalog)")
	rootCmd.PersistentFlags().StringVar(&workloadPath, "workload", "", "Path to workload YAML (default: built-in three-tenant workload)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Seed for workload generation; overrides the workload file's seed when set")
}
