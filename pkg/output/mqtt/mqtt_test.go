package mqtt

import (
	"testing"

	"github.com/starforgelabs/datanorm/pkg/config"
)

func TestFormatStateTopic(t *testing.T) {
	tests := []struct {
		base  string
		input int
		want  string
	}{
		{"", 2, "datanorm/input/2"},
		{"plant/light", 2, "plant/light"},
		{"plant/light/%d", 3, "plant/light/3"},
	}
	for _, tt := range tests {
		if got := formatStateTopic(tt.base, tt.input); got != tt.want {
			t.Fatalf("formatStateTopic(%q, %d) = %q; want %q", tt.base, tt.input, got, tt.want)
		}
	}
}

func TestDiscoveryNameAndUniqueID(t *testing.T) {
	cfg := config.MQTTConfig{ClientID: "rig1"}
	ch := config.ChannelConfig{Input: 2}

	if got := discoveryName(cfg, nil); got != "datanorm rig1" {
		t.Fatalf("discoveryName: got %q", got)
	}
	if got := discoveryName(cfg, &ch); got != "datanorm rig1 in2" {
		t.Fatalf("discoveryName with channel: got %q", got)
	}
	if got := discoveryUniqueID(cfg, &ch); got != "rig1_2" {
		t.Fatalf("discoveryUniqueID: got %q", got)
	}

	cfg.DiscoveryName = "South Window"
	cfg.DiscoveryUniqueID = "south-window"
	if got := discoveryName(cfg, &ch); got != "South Window in2" {
		t.Fatalf("custom discoveryName: got %q", got)
	}
	if got := discoveryUniqueID(cfg, nil); got != "south-window" {
		t.Fatalf("custom discoveryUniqueID: got %q", got)
	}
}

func TestBaseDiscoveryPayload(t *testing.T) {
	p := baseDiscoveryPayload("n", "topic", "uid")
	if p[keyStateTopic] != "topic" || p[keyUniqueID] != "uid" {
		t.Fatalf("payload: %v", p)
	}
	if p[keyValueTemplate] != valueTemplateValue {
		t.Fatalf("value template: %v", p[keyValueTemplate])
	}

	p = baseDiscoveryPayload("n", "topic", "")
	if _, ok := p[keyUniqueID]; ok {
		t.Fatalf("empty unique id should be omitted")
	}
}
