package config

import (
	"strings"

	"github.com/abgdnv/partsfinder/pkg/config"
	"github.com/abgdnv/partsfinder/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Gateway    config.GatewayConfig    `koanf:"gateway"`
	Search     config.SearchConfig     `koanf:"search"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Gateway.String())
	b.WriteString(c.Search.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer, &c.Gateway, &c.Search, &c.NATS, &c.Telemetry, &c.Log, &c.PProf, &c.Shutdown,
	}
	// The consumer only runs next to an enabled broker.
	if c.NATS.Enabled {
		validators = append(validators, &c.Subscriber)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
