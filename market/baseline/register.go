package baseline

import "github.com/streambazaar/streambazaar/market"

// Registered strategy names.
const (
	StrategyFlinkDefault = "flink-default"
	StrategyDS2          = "ds2"
	StrategyCAPSys       = "capsys"
	StrategyTALOS        = "talos"
)

func init() {
	market.RegisterStrategy(StrategyFlinkDefault, func(market.Config, market.DeviceCatalog) (market.Strategy, error) {
		return NewFlinkDefault(), nil
	})
	market.RegisterStrategy(StrategyDS2, func(market.Config, market.DeviceCatalog) (market.Strategy, error) {
		return NewDS2(), nil
	})
	market.RegisterStrategy(StrategyCAPSys, func(market.Config, market.DeviceCatalog) (market.Strategy, error) {
		return NewCAPSys(), nil
	})
	market.RegisterStrategy(StrategyTALOS, func(market.Config, market.DeviceCatalog) (market.Strategy, error) {
		return NewTALOS(), nil
	})
}
