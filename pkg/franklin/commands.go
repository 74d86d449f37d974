package franklin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fwhmon/fwhmon/pkg/types"
)

const (
	pathSendMQTT        = "hes-gateway/terminal/sendMqtt"
	pathCompositeInfo   = "hes-gateway/terminal/getDeviceCompositeInfo"
	pathAccessoryList   = "hes-gateway/common/getAccessoryList"
	pathGatewayList     = "hes-gateway/terminal/getHomeGatewayList"
	pathUpdateOffgrid   = "hes-gateway/terminal/updateOffgrid"
	pathUpdateGenerator = "hes-gateway/terminal/updateIotGenerator"
)

// readTTL bounds how long framed reads (status, switch state, usage) and the
// composite info are served from cache. The gateway itself only refreshes on
// a similar cadence.
const readTTL = 2 * time.Second

// dataArea is the inner payload of a command response. Depending on firmware
// it arrives either as a JSON string or as an inline object; both decode to
// the raw inner bytes.
type dataArea []byte

func (d *dataArea) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = []byte(s)
		return nil
	}
	*d = append((*d)[:0], b...)
	return nil
}

// sendCommand frames inner and dispatches it through the sendMqtt shim,
// decoding the response dataArea into dest when given.
func (c *Client) sendCommand(ctx context.Context, cmdType int, inner any, dest any) error {
	if err := c.ensureGateway(ctx); err != nil {
		return err
	}
	payload, err := c.frame(cmdType, inner)
	if err != nil {
		return err
	}

	var res struct {
		DataArea dataArea `json:"dataArea"`
	}
	if err := c.postRaw(ctx, pathSendMQTT, payload, &res); err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(res.DataArea, dest); err != nil {
		return fmt.Errorf("failed to decode command %d dataArea: %w", cmdType, err)
	}
	return nil
}

// GatewayStatus is the high-level runtime reading returned by command 203.
// Powers are kW, energies are daily kWh totals.
type GatewayStatus struct {
	PowerSolar     float64 `json:"p_sun"`
	PowerGenerator float64 `json:"p_gen"`
	GeneratorState int     `json:"genStat"`
	PowerBattery   float64 `json:"p_fhp"`
	PowerGrid      float64 `json:"p_uti"`
	PowerLoad      float64 `json:"p_load"`
	SOC            float64 `json:"soc"`

	// ProLoad reports the smart-circuit relays, 1 per powered channel.
	ProLoad []int `json:"pro_load"`

	// OffGridReason is absent while on grid.
	OffGridReason *int `json:"offgridreason"`

	TotalBatteryCharge    float64 `json:"kwh_fhp_chg"`
	TotalBatteryDischarge float64 `json:"kwh_fhp_di"`
	TotalGridImport       float64 `json:"kwh_uti_in"`
	TotalGridExport       float64 `json:"kwh_uti_out"`
	TotalSolar            float64 `json:"kwh_sun"`
	TotalGenerator        float64 `json:"kwh_gen"`
	TotalLoad             float64 `json:"kwh_load"`
}

// SwitchUsage is the real-time smart-circuit load report of command 353.
type SwitchUsage struct {
	Switch1Power float64 `json:"SW1ExpPower"`
	Switch2Power float64 `json:"SW2ExpPower"`
	EVPower      float64 `json:"CarSWPower"`

	Switch1Energy  float64 `json:"SW1ExpEnergy"`
	Switch2Energy  float64 `json:"SW2ExpEnergy"`
	EVExportEnergy float64 `json:"CarSWExpEnergy"`
	EVImportEnergy float64 `json:"CarSWImpEnergy"`
}

// Status returns the gateway's runtime status (command 203).
func (c *Client) Status(ctx context.Context) (GatewayStatus, error) {
	if st, ok := c.statusCache.get(); ok {
		return st, nil
	}
	var st GatewayStatus
	if err := c.sendCommand(ctx, cmdStatus, map[string]int{"opt": 1, "refreshData": 1}, &st); err != nil {
		return GatewayStatus{}, err
	}
	c.statusCache.set(st, readTTL)
	return st, nil
}

// switchStatus returns the raw smart-circuit payload of command 311. It stays
// a map because a later SetSmartSwitchState echoes it back with only the
// requested channels mutated, and the payload carries fields we do not model.
func (c *Client) switchStatus(ctx context.Context) (map[string]any, error) {
	if m, ok := c.switchCache.get(); ok {
		return m, nil
	}
	if err := c.ensureGateway(ctx); err != nil {
		return nil, err
	}
	var m map[string]any
	if err := c.sendCommand(ctx, cmdSmartSwitch, map[string]any{"opt": 0, "order": c.GatewayID()}, &m); err != nil {
		return nil, err
	}
	c.switchCache.set(m, readTTL)
	return m, nil
}

// Usage returns the real-time smart-circuit load report (command 353).
func (c *Client) Usage(ctx context.Context) (SwitchUsage, error) {
	if u, ok := c.usageCache.get(); ok {
		return u, nil
	}
	if err := c.ensureGateway(ctx); err != nil {
		return SwitchUsage{}, err
	}
	var u SwitchUsage
	if err := c.sendCommand(ctx, cmdSwitchUsage, map[string]any{"opt": 0, "order": c.GatewayID()}, &u); err != nil {
		return SwitchUsage{}, err
	}
	c.usageCache.set(u, readTTL)
	return u, nil
}

// GetStats assembles a full snapshot from the runtime status and the
// smart-circuit usage, fetched concurrently and joined after both return.
func (c *Client) GetStats(ctx context.Context) (types.Stats, error) {
	if err := c.ensureGateway(ctx); err != nil {
		return types.Stats{}, err
	}

	var (
		st GatewayStatus
		su SwitchUsage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st, err = c.Status(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		su, err = c.Usage(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.Stats{}, err
	}

	grid, err := types.GridStatusFromOffGridReason(st.OffGridReason)
	if err != nil {
		return types.Stats{}, err
	}

	return types.Stats{
		Current: types.Current{
			SolarProduction:     st.PowerSolar,
			GeneratorProduction: st.PowerGenerator,
			GeneratorEnabled:    st.GeneratorState > 1,
			BatteryUse:          st.PowerBattery,
			GridUse:             st.PowerGrid,
			HomeLoad:            st.PowerLoad,
			BatterySOC:          st.SOC,
			Switch1Load:         su.Switch1Power,
			Switch2Load:         su.Switch2Power,
			V2LUse:              su.EVPower,
			GridStatus:          grid,
		},
		Totals: types.Totals{
			BatteryCharge:    st.TotalBatteryCharge,
			BatteryDischarge: st.TotalBatteryDischarge,
			GridImport:       st.TotalGridImport,
			GridExport:       st.TotalGridExport,
			Solar:            st.TotalSolar,
			Generator:        st.TotalGenerator,
			HomeUse:          st.TotalLoad,
			Switch1Use:       su.Switch1Energy,
			Switch2Use:       su.Switch2Energy,
			V2LExport:        su.EVExportEnergy,
			V2LImport:        su.EVImportEnergy,
		},
	}, nil
}

// GetSmartSwitchState reports which smart circuits are currently powered.
func (c *Client) GetSmartSwitchState(ctx context.Context) (types.SwitchState, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return types.SwitchState{}, err
	}
	var state types.SwitchState
	for i, v := range st.ProLoad {
		if i >= len(state) {
			break
		}
		state[i] = types.Bool(v == 1)
	}
	return state, nil
}

func equalBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SetSmartSwitchState turns smart circuits on or off. Nil channels keep their
// stored configuration untouched. When the gateway reports switches 1 and 2
// as hardware-merged, differing targets for them fail before anything is
// transmitted; setting a merged pair inconsistently could do real damage to
// the wiring behind it.
func (c *Client) SetSmartSwitchState(ctx context.Context, state types.SwitchState) error {
	current, err := c.switchStatus(ctx)
	if err != nil {
		return err
	}

	if merged, _ := current["SwMerge"].(float64); merged == 1 {
		if !equalBoolPtr(state[0], state[1]) {
			return ErrMergedSwitchConflict
		}
	}

	payload := make(map[string]any, len(current)+1)
	for k, v := range current {
		payload[k] = v
	}
	payload["opt"] = 1
	delete(payload, "modeChoose")
	delete(payload, "result")

	for i, ch := range state {
		if ch == nil {
			continue
		}
		mode := 0
		if *ch {
			mode = 1
		}
		n := i + 1
		payload[fmt.Sprintf("Sw%dMsgType", n)] = 1
		payload[fmt.Sprintf("Sw%dMode", n)] = mode
		payload[fmt.Sprintf("Sw%dProLoad", n)] = mode ^ 1
	}

	c.switchCache.invalidate()
	c.statusCache.invalidate()
	return c.sendCommand(ctx, cmdSmartSwitch, payload, nil)
}

// SetGridStatus connects or disconnects the gateway from the grid. soc is the
// reserve the gateway keeps while off-grid.
func (c *Client) SetGridStatus(ctx context.Context, status types.GridStatus, soc int) error {
	if err := c.ensureGateway(ctx); err != nil {
		return err
	}
	offgrid := 0
	if status != types.GridStatusNormal {
		offgrid = 1
	}
	body := map[string]any{
		"gatewayId":  c.GatewayID(),
		"offgridSet": offgrid,
		"offgridSoc": soc,
	}
	return c.postJSON(ctx, pathUpdateOffgrid, nil, body, nil)
}

// SetGenerator enables or disables a connected generator module.
func (c *Client) SetGenerator(ctx context.Context, enabled bool) error {
	if err := c.ensureGateway(ctx); err != nil {
		return err
	}
	manuSw := 1
	if enabled {
		manuSw = 2
	}
	body := map[string]any{
		"manuSw":    manuSw,
		"gatewayId": c.GatewayID(),
		"opt":       1,
	}
	return c.postJSON(ctx, pathUpdateGenerator, nil, body, nil)
}

// Accessories lists the modules attached to the gateway.
func (c *Client) Accessories(ctx context.Context) ([]types.Accessory, error) {
	if err := c.ensureGateway(ctx); err != nil {
		return nil, err
	}
	var list []types.Accessory
	if err := c.get(ctx, pathAccessoryList, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type compositeInfo struct {
	CurrentWorkMode int `json:"currentWorkMode"`
	RuntimeData     struct {
		ModeID int     `json:"mode"`
		SOC    float64 `json:"soc"`
	} `json:"runtimeData"`
}

func (c *Client) getCompositeInfo(ctx context.Context) (compositeInfo, error) {
	if ci, ok := c.compositeCache.get(); ok {
		return ci, nil
	}
	if err := c.ensureGateway(ctx); err != nil {
		return compositeInfo{}, err
	}
	params := url.Values{}
	params.Set("refreshFlag", "1")
	var ci compositeInfo
	if err := c.get(ctx, pathCompositeInfo, params, &ci); err != nil {
		return compositeInfo{}, err
	}
	c.compositeCache.set(ci, readTTL)
	return ci, nil
}
