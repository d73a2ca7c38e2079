package metrics

import "github.com/smallbiznis/hospitality/internal/config"

// Config labels every metric with the emitting service.
type Config struct {
	ServiceName string
	Environment string
	Enabled     bool
}

func NewConfig(cfg config.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Enabled:     cfg.Observability.MetricsEnabled,
	}
}
