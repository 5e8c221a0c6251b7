package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	StateTopic        string `json:"state_topic"`
	DiscoveryTopic    string `json:"discovery_topic,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty"`
}

type OutputConfig struct {
	Type       string      `json:"type"`
	IntervalMs int         `json:"interval_ms,omitempty"`
	MQTT       *MQTTConfig `json:"mqtt,omitempty"`
}

// ChannelConfig binds a physical input to its calibration breakpoints. The
// breakpoints must ascend and pair up with the shared Normalized table.
type ChannelConfig struct {
	Input       int   `json:"input"`
	Enabled     bool  `json:"enabled"`
	Breakpoints []int `json:"breakpoints"`
}

type Config struct {
	I2CBus     string          `json:"i2c_bus"`
	I2CAddress int             `json:"i2c_address"`
	SampleRate int             `json:"sample_rate"`
	SensorType string          `json:"sensor_type"`
	Channels   []ChannelConfig `json:"channels"`
	Normalized []int           `json:"normalized"`
	Outputs    []OutputConfig  `json:"outputs"`
	IntervalMs int             `json:"interval_ms"`
}

func DefaultConfig() Config {
	return Config{
		I2CBus:     "2",
		I2CAddress: 0x48,
		SampleRate: 128,
		SensorType: "simulation",
		Channels: []ChannelConfig{
			{Input: 0, Enabled: true, Breakpoints: []int{0, 1023}},
			{Input: 1, Enabled: true, Breakpoints: []int{0, 1023}},
		},
		Normalized: []int{0, 1000},
		Outputs:    []OutputConfig{{Type: "console", IntervalMs: 1000}},
		IntervalMs: 1000,
	}
}

// LoadFromFlags loads configuration from a JSON file (optional) and flags.
// Flags override values present in the JSON file. Calibration tables only
// come from the file; the -channels flag selects which configured inputs are
// enabled.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON config file")
	flagI2CBus := flag.String("i2c-bus", "", "I2C bus (e.g., '2' -> /dev/i2c-2)")
	flagI2CAddStr := flag.String("i2c-address", "", "I2C address (decimal or 0x hex)")
	flagSampleRate := flag.Int("sample-rate", -1, "ADC sample rate (SPS)")
	flagSensorType := flag.String("sensor-type", "", "sensor type: real|simulation")
	flagChannels := flag.String("channels", "", "Comma-separated inputs to enable e.g. 0,1,2")
	flagOutputs := flag.String("outputs", "", "Comma-separated outputs (console,mqtt)")
	flagOutputIntervals := flag.String("output-intervals", "", "Comma-separated output intervals e.g. console=1000,mqtt=5000")
	flagInterval := flag.Int("interval-ms", -1, "Publish interval in ms")
	flagMQTTServer := flag.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := flag.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := flag.String("mqtt-pass", "", "MQTT password")
	flagClientID := flag.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := flag.String("mqtt-topic", "", "MQTT state topic (may contain %d for the input)")

	flag.Parse()

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagI2CBus != "" {
		cfg.I2CBus = *flagI2CBus
	}
	if *flagI2CAddStr != "" {
		v, err := parseIntOrHex(*flagI2CAddStr)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		cfg.I2CAddress = v
	}
	if *flagSampleRate != -1 {
		cfg.SampleRate = *flagSampleRate
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagChannels != "" {
		inputs, err := parseInts(*flagChannels)
		if err != nil {
			return cfg, err
		}
		if err := selectChannels(&cfg, inputs); err != nil {
			return cfg, err
		}
	}
	if *flagOutputs != "" {
		// convert simple CSV of types into structured OutputConfig entries
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p, IntervalMs: cfg.IntervalMs})
		}
		cfg.Outputs = outs
	}
	if *flagOutputIntervals != "" {
		for _, p := range parseCSV(*flagOutputIntervals) {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			if v, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil {
				for i := range cfg.Outputs {
					if cfg.Outputs[i].Type == strings.TrimSpace(kv[0]) {
						cfg.Outputs[i].IntervalMs = v
					}
				}
			}
		}
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		applyMQTTFlags(&cfg, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
	}
	// ensure outputs have interval default
	for i := range cfg.Outputs {
		if cfg.Outputs[i].IntervalMs == 0 {
			cfg.Outputs[i].IntervalMs = cfg.IntervalMs
		}
	}

	if cfg.SampleRate <= 0 {
		return cfg, errors.New("sample-rate must be > 0")
	}

	return cfg, nil
}

// EnabledChannels returns the channels selected for sampling, in config
// order.
func (c Config) EnabledChannels() []ChannelConfig {
	out := make([]ChannelConfig, 0, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Enabled {
			out = append(out, ch)
		}
	}
	return out
}

// selectChannels enables exactly the listed inputs. Every listed input needs
// a channel entry carrying its calibration table.
func selectChannels(cfg *Config, inputs []int) error {
	want := make(map[int]bool, len(inputs))
	for _, in := range inputs {
		want[in] = true
	}
	for i := range cfg.Channels {
		cfg.Channels[i].Enabled = want[cfg.Channels[i].Input]
		delete(want, cfg.Channels[i].Input)
	}
	for in := range want {
		return fmt.Errorf("input %d has no channel configuration", in)
	}
	return nil
}

// applyMQTTFlags applies MQTT flags to all mqtt outputs, creating one if
// none exists.
func applyMQTTFlags(cfg *Config, server, user, pass, clientID, topic string) {
	applied := false
	for i := range cfg.Outputs {
		if strings.ToLower(cfg.Outputs[i].Type) == "mqtt" {
			if cfg.Outputs[i].MQTT == nil {
				cfg.Outputs[i].MQTT = &MQTTConfig{}
			}
			setMQTTFields(cfg.Outputs[i].MQTT, server, user, pass, clientID, topic)
			applied = true
		}
	}
	if !applied {
		out := OutputConfig{Type: "mqtt", IntervalMs: cfg.IntervalMs, MQTT: &MQTTConfig{}}
		setMQTTFields(out.MQTT, server, user, pass, clientID, topic)
		cfg.Outputs = append(cfg.Outputs, out)
	}
}

func setMQTTFields(m *MQTTConfig, server, user, pass, clientID, topic string) {
	if server != "" {
		m.Server = server
	}
	if user != "" {
		m.Username = user
	}
	if pass != "" {
		m.Password = pass
	}
	if clientID != "" {
		m.ClientID = clientID
	}
	if topic != "" {
		m.StateTopic = topic
	}
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := parseCSV(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid input '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
