package qbdt

import (
	"github.com/spf13/viper"
	"github.com/theapemachine/errnie"
)

// Config collects the knobs an embedding engine sets once before building
// trees: the separability threshold that drives compression and the worker
// budget behind parallel recursion.
type Config struct {
	SeparabilityThreshold float64
	Workers               int
}

/*
NewConfig reads configuration from the environment:

	QBDT_SEPARABILITY_THRESHOLD  squared-magnitude equality tolerance
	QBDT_WORKERS                 dispatcher worker count (0 = physical cores)

Unset values fall back to defaults.
*/
func NewConfig() *Config {
	v := viper.New()
	v.SetEnvPrefix("qbdt")
	v.AutomaticEnv()
	v.SetDefault("separability_threshold", DefaultSeparabilityThreshold)
	v.SetDefault("workers", 0)

	c := &Config{
		SeparabilityThreshold: v.GetFloat64("separability_threshold"),
		Workers:               v.GetInt("workers"),
	}

	errnie.Info(
		"qbdt config - separability threshold %g, workers %d",
		c.SeparabilityThreshold,
		c.Workers,
	)

	return c
}

// Apply installs the configuration: the threshold becomes visible to every
// comparison, and the default dispatcher is rebuilt with the worker budget.
func (c *Config) Apply() {
	SetSeparabilityThreshold(c.SeparabilityThreshold)
	SetDispatcher(NewDispatcher(c.Workers))
}
