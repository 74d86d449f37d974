package franklin

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"strings"
	"time"
)

// Command types understood by the gateway firmware. The log of known types is
// short; anything else observed in the wild goes through the generic framer.
const (
	cmdStatus      = 203 // high-level runtime status
	cmdSmartSwitch = 311 // smart-circuit relay state, read (opt 0) and write (opt 1)
	cmdSwitchUsage = 353 // real-time smart-circuit load and energy
)

const dataAreaPlaceholder = "DATA"

// envelope is the framed command wrapper. Field order matters only in that
// dataArea stays last, keeping the placeholder substitution unambiguous.
type envelope struct {
	Lang      string `json:"lang"`
	CmdType   int    `json:"cmdType"`
	EquipNo   string `json:"equipNo"`
	Type      int    `json:"type"`
	TimeStamp int64  `json:"timeStamp"`
	Snno      int64  `json:"snno"`
	Len       int    `json:"len"`
	CRC       string `json:"crc"`
	DataArea  string `json:"dataArea"`
}

// frame serializes inner to compact JSON, checksums those exact bytes, and
// splices them into the command envelope textually. The envelope must never
// be re-encoded after the splice: the CRC covers the inner bytes as sent, and
// any re-serialization could reorder keys and silently invalidate it.
func (c *Client) frame(cmdType int, inner any) (string, error) {
	raw, err := json.Marshal(inner)
	if err != nil {
		return "", fmt.Errorf("encode command payload: %w", err)
	}

	env := envelope{
		Lang:      "EN_US",
		CmdType:   cmdType,
		EquipNo:   c.GatewayID(),
		TimeStamp: time.Now().Unix(),
		Snno:      c.snno.Add(1),
		Len:       len(raw),
		CRC:       fmt.Sprintf("%08X", crc32.ChecksumIEEE(raw)),
		DataArea:  dataAreaPlaceholder,
	}
	wrapped, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode command envelope: %w", err)
	}
	return strings.Replace(string(wrapped), `"`+dataAreaPlaceholder+`"`, string(raw), 1), nil
}
