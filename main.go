package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/starforgelabs/datanorm/pkg/config"
	"github.com/starforgelabs/datanorm/pkg/normalizer"
	"github.com/starforgelabs/datanorm/pkg/output"
	"github.com/starforgelabs/datanorm/pkg/output/console"
	"github.com/starforgelabs/datanorm/pkg/output/mqtt"
	"github.com/starforgelabs/datanorm/pkg/sensor"
)

type outputEntry struct {
	Type       string
	IntervalMs int
	out        output.Output
	last       time.Time
}

// buildNormalizerConfig maps the enabled channels onto the normalizer's
// channel-group configuration.
func buildNormalizerConfig(cfg config.Config) normalizer.Config {
	enabled := cfg.EnabledChannels()
	nc := normalizer.Config{
		Count:   len(enabled),
		Sources: make([]int, 0, len(enabled)),
		Tables:  make([][]int, 0, len(enabled)),
		Outputs: cfg.Normalized,
	}
	for _, ch := range enabled {
		nc.Sources = append(nc.Sources, ch.Input)
		nc.Tables = append(nc.Tables, ch.Breakpoints)
	}
	return nc
}

// computeSampleInterval returns the per-cycle interval in ms: one conversion
// per enabled channel at the configured sample rate plus settle time.
func computeSampleInterval(cfg config.Config) int {
	perChannel := int(math.Ceil(1000.0/float64(cfg.SampleRate))) + 2
	n := len(cfg.EnabledChannels())
	if n < 1 {
		n = 1
	}
	return perChannel * n
}

func initOutputs(cfg *config.Config, defaultIntervalMs int) ([]outputEntry, error) {
	entries := make([]outputEntry, 0, len(cfg.Outputs))
	for i := range cfg.Outputs {
		oc := &cfg.Outputs[i]
		if oc.IntervalMs == 0 {
			oc.IntervalMs = defaultIntervalMs
		}
		var (
			out output.Output
			err error
		)
		switch oc.Type {
		case "console":
			out = console.NewConsole()
		case "mqtt":
			mc := config.MQTTConfig{}
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			out, err = mqtt.NewMQTT(mc, cfg.Channels)
		default:
			err = fmt.Errorf("unknown output type %q", oc.Type)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, outputEntry{Type: oc.Type, IntervalMs: oc.IntervalMs, out: out})
	}
	return entries, nil
}

func closeOutputs(entries []outputEntry) {
	for i := range entries {
		if err := entries[i].out.Close(); err != nil {
			log.Printf("close %s: %v", entries[i].Type, err)
		}
	}
}

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	src, err := sensor.New(cfg)
	if err != nil {
		log.Fatalf("sensor: %v", err)
	}
	defer src.Close()

	norm, err := normalizer.New(buildNormalizerConfig(cfg), src)
	if err != nil {
		log.Fatalf("calibration setup: %v", err)
	}

	entries, err := initOutputs(&cfg, cfg.IntervalMs)
	if err != nil {
		log.Fatalf("outputs: %v", err)
	}
	defer closeOutputs(entries)

	interval := time.Duration(computeSampleInterval(cfg)) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	log.Printf("sampling %d channels every %s (%s sensor)", norm.Count(), interval, cfg.SensorType)
	for {
		select {
		case <-sig:
			log.Println("shutting down")
			return
		case now := <-ticker.C:
			if err := norm.ReadAndNormalize(); err != nil {
				// status is frozen at construction; this cannot heal
				log.Fatalf("read/normalize: %v", err)
			}
			readings := norm.Snapshot()
			for i := range entries {
				e := &entries[i]
				if !e.last.IsZero() && now.Sub(e.last) < time.Duration(e.IntervalMs)*time.Millisecond {
					continue
				}
				if err := e.out.Publish(readings); err != nil {
					log.Printf("publish %s: %v", e.Type, err)
					continue
				}
				e.last = now
			}
		}
	}
}
