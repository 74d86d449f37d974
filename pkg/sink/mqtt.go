package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fwhmon/fwhmon/pkg/types"
)

// mqttSink publishes every snapshot as retained JSON on
// <prefix>/<gatewayID>/stats, so subscribers always see the latest snapshot
// even across reconnects.
type mqttSink struct {
	client mqtt.Client
	prefix string
}

func newMQTTSink(broker, prefix string) (*mqttSink, error) {
	hostname, _ := os.Hostname()
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("fwhmon/%s-%d", hostname, os.Getpid())).
		SetCleanSession(true).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", broker, token.Error())
	}
	return &mqttSink{client: client, prefix: prefix}, nil
}

func (s *mqttSink) Name() string {
	return "mqtt"
}

func (s *mqttSink) Publish(ctx context.Context, gatewayID string, stats types.Stats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	topic := fmt.Sprintf("%s/%s/stats", s.prefix, gatewayID)

	token := s.client.Publish(topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (s *mqttSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
