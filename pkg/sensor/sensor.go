package sensor

import (
	"fmt"

	"github.com/starforgelabs/datanorm/pkg/config"
)

// Source hands out one raw sample per physical input. It satisfies the
// normalizer's sample-source contract and adds lifecycle management for
// implementations that own a bus.
type Source interface {
	Sample(input int) (int, error)
	Close() error
}

// New builds the source selected by cfg.SensorType.
func New(cfg config.Config) (Source, error) {
	switch cfg.SensorType {
	case "", "real":
		return NewADS1115(cfg)
	case "simulation":
		return NewFake(cfg)
	default:
		return nil, fmt.Errorf("unknown sensor type %q", cfg.SensorType)
	}
}
