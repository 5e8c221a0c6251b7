package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/starforgelabs/datanorm/pkg/config"
	"github.com/starforgelabs/datanorm/pkg/normalizer"
	"github.com/starforgelabs/datanorm/pkg/output"
)

const (
	// defaults
	DefaultServer    = "tcp://localhost:1883"
	DefaultClientID  = "datanorm-client"
	perInputTopicFmt = "datanorm/input/%d"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	stateClassMeasurement  = "measurement"
	valueTemplateValue     = "{{ value_json.normalized }}"
)

type MQTTOutput struct {
	client         mqtt.Client
	stateTopic     string
	discoveryTopic string
}

func NewMQTT(cfg config.MQTTConfig, channels []config.ChannelConfig) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	m := &MQTTOutput{client: client, stateTopic: cfg.StateTopic, discoveryTopic: cfg.DiscoveryTopic}

	// Publish Home Assistant discovery payload(s) if requested
	if m.discoveryTopic != "" {
		// per-input discovery when discoveryTopic contains a formatter
		if strings.Contains(m.discoveryTopic, "%d") {
			for _, ch := range channels {
				if !ch.Enabled {
					continue
				}
				dTopic := fmt.Sprintf(m.discoveryTopic, ch.Input)
				payload := baseDiscoveryPayload(
					discoveryName(cfg, &ch),
					formatStateTopic(cfg.StateTopic, ch.Input),
					discoveryUniqueID(cfg, &ch))
				if err := publishJSON(client, dTopic, true, payload); err != nil {
					log.Printf("mqtt discovery publish error: %v", err)
				}
			}
		} else {
			payload := baseDiscoveryPayload(discoveryName(cfg, nil), m.stateTopic, discoveryUniqueID(cfg, nil))
			if err := publishJSON(client, m.discoveryTopic, true, payload); err != nil {
				log.Printf("mqtt discovery publish error: %v", err)
			}
		}
	}

	return m, nil
}

func (m *MQTTOutput) Publish(readings []normalizer.Reading) error {
	for _, r := range readings {
		topic := formatStateTopic(m.stateTopic, r.Source)
		payload := map[string]interface{}{"normalized": r.Value, "raw": r.Raw, "segment": r.Segment}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		token := m.client.Publish(topic, 0, false, b)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// PublishRaw publishes a raw payload to the given topic. The caller can set the
// retain flag which is useful for discovery messages.
func (m *MQTTOutput) PublishRaw(topic string, payload []byte, retained bool) error {
	if m.client == nil {
		return fmt.Errorf("mqtt client not connected")
	}
	token := m.client.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

// helper: format a state topic for an input using an optional formatter
func formatStateTopic(base string, input int) string {
	if base != "" {
		if strings.Contains(base, "%d") {
			return fmt.Sprintf(base, input)
		}
		return base
	}
	return fmt.Sprintf(perInputTopicFmt, input)
}

// helper: build a human-friendly discovery name; if ch != nil append input
func discoveryName(cfg config.MQTTConfig, ch *config.ChannelConfig) string {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("datanorm %s", cfg.ClientID)
	}
	if ch != nil {
		name = fmt.Sprintf("%s in%d", name, ch.Input)
	}
	return name
}

// helper: build a unique id for discovery; if ch != nil append input
func discoveryUniqueID(cfg config.MQTTConfig, ch *config.ChannelConfig) string {
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	if uid != "" && ch != nil {
		uid = fmt.Sprintf("%s_%d", uid, ch.Input)
	}
	return uid
}

// helper: base discovery payload map common to all entries
func baseDiscoveryPayload(name, stateTopic, uniqueID string) map[string]interface{} {
	payload := map[string]interface{}{
		keyName:                name,
		keyStateTopic:          stateTopic,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       valueTemplateValue,
		keyJSONAttributesTopic: stateTopic,
	}
	if uniqueID != "" {
		payload[keyUniqueID] = uniqueID
	}
	return payload
}

// helper: marshal and publish JSON payload
func publishJSON(client mqtt.Client, topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}
