// Package sink publishes gateway stats snapshots to external systems.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/levenlabs/go-lflag"

	"github.com/fwhmon/fwhmon/pkg/log"
	"github.com/fwhmon/fwhmon/pkg/types"
)

// Sink receives a stats snapshot after every successful poll.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	Publish(ctx context.Context, gatewayID string, stats types.Stats) error
	Close() error
}

// Set fans a snapshot out to every configured sink. Publish failures are
// logged per sink and do not stop the others; a down broker must not cost us
// the Influx history or vice versa.
type Set struct {
	sinks []Sink
}

// NewSet builds a set from the given sinks.
func NewSet(sinks ...Sink) *Set {
	return &Set{sinks: sinks}
}

// Configured sets up the sink set based on flags. Sinks whose flags are left
// empty are not created.
func Configured() *Set {
	s := &Set{}

	influxHost := lflag.String("influx-host", "", "InfluxDB v3 host URL (empty disables the Influx sink)")
	influxToken := lflag.String("influx-token", "", "InfluxDB auth token")
	influxDatabase := lflag.String("influx-database", "fwhmon", "InfluxDB database to write stats into")
	mqttBroker := lflag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (empty disables the MQTT sink)")
	mqttPrefix := lflag.String("mqtt-topic-prefix", "fwhmon", "Topic prefix for published stats")

	lflag.Do(func() {
		if *influxHost != "" {
			is, err := newInfluxSink(*influxHost, *influxToken, *influxDatabase)
			if err != nil {
				panic("influx sink init failed: " + err.Error())
			}
			s.sinks = append(s.sinks, is)
		}
		if *mqttBroker != "" {
			ms, err := newMQTTSink(*mqttBroker, *mqttPrefix)
			if err != nil {
				panic("mqtt sink init failed: " + err.Error())
			}
			s.sinks = append(s.sinks, ms)
		}
	})

	return s
}

// Len returns the number of configured sinks.
func (s *Set) Len() int {
	return len(s.sinks)
}

// Publish sends the snapshot to every sink, logging failures and moving on.
func (s *Set) Publish(ctx context.Context, gatewayID string, stats types.Stats) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, gatewayID, stats); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to publish stats",
				slog.String("sink", sink.Name()),
				slog.Any("error", err),
			)
		}
	}
}

// Close closes every sink and joins their errors.
func (s *Set) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
