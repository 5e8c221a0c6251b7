package main

import (
	"testing"

	"github.com/starforgelabs/datanorm/pkg/config"
	"github.com/starforgelabs/datanorm/pkg/normalizer"
)

func TestComputeSampleInterval(t *testing.T) {
	// no enabled channels -> one-channel fallback
	cfg := config.Config{SampleRate: 128}
	if got := computeSampleInterval(cfg); got != 10 {
		t.Fatalf("fallback interval: got %d want 10", got)
	}

	// one enabled channel at 128 SPS
	cfg.Channels = []config.ChannelConfig{{Input: 0, Enabled: true}}
	if got := computeSampleInterval(cfg); got != 10 {
		t.Fatalf("one channel interval: got %d want 10", got)
	}

	// two enabled channels at 128 -> ~20ms
	cfg.Channels = append(cfg.Channels, config.ChannelConfig{Input: 1, Enabled: true})
	if got := computeSampleInterval(cfg); got != 20 {
		t.Fatalf("two channel interval: got %d want 20", got)
	}

	// 250 SPS -> 6ms per channel
	cfg.SampleRate = 250
	if got := computeSampleInterval(cfg); got != 12 {
		t.Fatalf("250 SPS interval: got %d want 12", got)
	}
}

func TestBuildNormalizerConfig(t *testing.T) {
	cfg := config.Config{
		Channels: []config.ChannelConfig{
			{Input: 3, Enabled: true, Breakpoints: []int{0, 100}},
			{Input: 1, Enabled: false, Breakpoints: []int{0, 50}},
			{Input: 2, Enabled: true, Breakpoints: []int{0, 200}},
		},
		Normalized: []int{0, 1000},
	}
	nc := buildNormalizerConfig(cfg)
	if nc.Count != 2 {
		t.Fatalf("count: got %d want 2", nc.Count)
	}
	if nc.Sources[0] != 3 || nc.Sources[1] != 2 {
		t.Fatalf("sources: %v", nc.Sources)
	}
	if len(nc.Tables) != 2 || nc.Tables[1][1] != 200 {
		t.Fatalf("tables: %v", nc.Tables)
	}

	// the produced config must pass the normalizer's validation
	if _, err := normalizer.New(nc, nopSource{}); err != nil {
		t.Fatalf("validation: %v", err)
	}
}

type nopSource struct{}

func (nopSource) Sample(int) (int, error) { return 0, nil }

func TestInitOutputsSetsInterval(t *testing.T) {
	cfg := config.Config{Outputs: []config.OutputConfig{{Type: "console"}}}
	entries, err := initOutputs(&cfg, 123)
	if err != nil {
		t.Fatalf("initOutputs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries len: %d", len(entries))
	}
	if cfg.Outputs[0].IntervalMs != 123 {
		t.Fatalf("cfg output interval not set, got %d", cfg.Outputs[0].IntervalMs)
	}
	if entries[0].IntervalMs != 123 {
		t.Fatalf("entry interval not set, got %d", entries[0].IntervalMs)
	}
}

func TestInitOutputsUnknownType(t *testing.T) {
	cfg := config.Config{Outputs: []config.OutputConfig{{Type: "carrier-pigeon"}}}
	if _, err := initOutputs(&cfg, 100); err == nil {
		t.Fatalf("expected error for unknown output type")
	}
}
