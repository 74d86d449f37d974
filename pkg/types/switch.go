package types

import (
	"fmt"
	"strings"
)

// SwitchState is the requested or reported state of the three smart-circuit
// relays. Each channel is on (true), off (false), or unchanged (nil).
type SwitchState [3]*bool

// NewSwitchState builds a SwitchState from per-channel values. Pass nil to
// leave a channel untouched.
func NewSwitchState(ch1, ch2, ch3 *bool) SwitchState {
	return SwitchState{ch1, ch2, ch3}
}

// Bool is a convenience for building SwitchState literals.
func Bool(b bool) *bool {
	return &b
}

func (s SwitchState) String() string {
	parts := make([]string, len(s))
	for i, ch := range s {
		switch {
		case ch == nil:
			parts[i] = "unchanged"
		case *ch:
			parts[i] = "on"
		default:
			parts[i] = "off"
		}
	}
	return strings.Join(parts, ",")
}

// ParseSwitchChannel parses a per-channel flag value: "on", "off" or "keep".
func ParseSwitchChannel(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return Bool(true), nil
	case "off":
		return Bool(false), nil
	case "keep", "", "-":
		return nil, nil
	}
	return nil, fmt.Errorf("invalid switch value %q, want on, off or keep", s)
}

// AccessoryType identifies the kind of module attached to the gateway.
type AccessoryType int

const (
	AccessoryGeneratorModule    AccessoryType = 3
	AccessorySmartCircuitModule AccessoryType = 4
)

func (a AccessoryType) String() string {
	switch a {
	case AccessoryGeneratorModule:
		return "generator module"
	case AccessorySmartCircuitModule:
		return "smart circuits module"
	}
	return fmt.Sprintf("AccessoryType(%d)", int(a))
}

// Accessory is one entry from the gateway's accessory list.
type Accessory struct {
	ID     int           `json:"id"`
	Type   AccessoryType `json:"type"`
	Name   string        `json:"name"`
	Serial string        `json:"sn"`
}
