package sink

import (
	"context"
	"fmt"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"

	"github.com/fwhmon/fwhmon/pkg/types"
)

// influxSink writes every snapshot as a single point in the gateway_stats
// measurement, tagged with the gateway serial.
type influxSink struct {
	client   *influxdb3.Client
	database string
}

func newInfluxSink(host, token, database string) (*influxSink, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     host,
		Token:    token,
		Database: database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create influx client: %w", err)
	}
	return &influxSink{client: client, database: database}, nil
}

func (s *influxSink) Name() string {
	return "influx"
}

func (s *influxSink) Publish(ctx context.Context, gatewayID string, stats types.Stats) error {
	point := influxdb3.NewPointWithMeasurement("gateway_stats").
		SetTag("gateway", gatewayID).
		SetField("solar_production", stats.Current.SolarProduction).
		SetField("generator_production", stats.Current.GeneratorProduction).
		SetField("generator_enabled", stats.Current.GeneratorEnabled).
		SetField("battery_use", stats.Current.BatteryUse).
		SetField("grid_use", stats.Current.GridUse).
		SetField("home_load", stats.Current.HomeLoad).
		SetField("battery_soc", stats.Current.BatterySOC).
		SetField("switch1_load", stats.Current.Switch1Load).
		SetField("switch2_load", stats.Current.Switch2Load).
		SetField("v2l_use", stats.Current.V2LUse).
		SetField("grid_status", int64(stats.Current.GridStatus)).
		SetField("total_battery_charge", stats.Totals.BatteryCharge).
		SetField("total_battery_discharge", stats.Totals.BatteryDischarge).
		SetField("total_grid_import", stats.Totals.GridImport).
		SetField("total_grid_export", stats.Totals.GridExport).
		SetField("total_solar", stats.Totals.Solar).
		SetField("total_generator", stats.Totals.Generator).
		SetField("total_home_use", stats.Totals.HomeUse).
		SetField("total_switch1_use", stats.Totals.Switch1Use).
		SetField("total_switch2_use", stats.Totals.Switch2Use).
		SetField("total_v2l_export", stats.Totals.V2LExport).
		SetField("total_v2l_import", stats.Totals.V2LImport)

	if err := s.client.WritePoints(ctx, []*influxdb3.Point{point}); err != nil {
		return fmt.Errorf("failed to write stats point: %w", err)
	}
	return nil
}

func (s *influxSink) Close() error {
	return s.client.Close()
}
