package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/streambazaar/streambazaar/market"
)

var utilizationFlags map[string]string // kind=utilization applied to every quoted device

// pricesCmd quotes device resource prices
var pricesCmd = &cobra.Command{
	Use:   "prices [device...]",
	Short: "Quote per-resource prices for catalog devices",
	Run: func(cmd *cobra.Command, args []string) {
		in, err := loadInputs(false)
		if err != nil {
			logrus.Fatalf("Loading inputs: %v", err)
		}
		utilizations, err := parseUtilizations(utilizationFlags)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := quotePrices(in, args, utilizations, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func parseUtilizations(flags map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(flags))
	for kind, raw := range flags {
		u, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("utilization for %s: %w", kind, err)
		}
		if u < 0 || u > 1 {
			return nil, fmt.Errorf("utilization for %s must be in [0,1], got %f", kind, u)
		}
		out[kind] = u
	}
	return out, nil
}

// quotePrices prints list and adjusted prices for each device. No device
// names means every catalog device. Without utilizations only list prices
// are shown, as the scheduler does before its first snapshot.
func quotePrices(in inputs, devices []string, utilizations map[string]float64, out io.Writer) error {
	s, err := market.NewScheduler(in.config, in.catalog)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		devices = in.catalog.ListDevices()
	}
	for _, device := range devices {
		list, err := s.Pricing().ListPrices(device)
		if err != nil {
			return err
		}
		if len(utilizations) > 0 {
			s.UpdateResourceUtilization(device, utilizations)
		}
		quote, err := s.GetDevicePrices(device)
		if err != nil {
			return err
		}
		dev, err := in.catalog.GetDevice(device)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s, %.0fW, $%.4f/h power)\n", device, dev.Category, dev.PowerDraw, dev.CalculatePowerCost(1, 0))
		for _, kind := range dev.ResourceKinds() {
			fmt.Fprintf(out, "  %-8s list %.4f  quote %.4f  (utilization %.2f)\n", kind, list[kind], quote[kind], utilizations[kind])
		}
	}
	return nil
}

func init() {
	pricesCmd.Flags().StringToStringVar(&utilizationFlags, "utilization", nil, "Utilization per resource kind, e.g. cpu=0.9,memory=0.5")

	rootCmd.AddCommand(pricesCmd)
}
