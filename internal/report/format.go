// internal/report/format.go
package report

import (
	"encoding/json"
	"fmt"

	"github.com/tamzrod/dco-calibrator/internal/calib"
)

// lineOrder returns the targets in on-wire order: slow to fast,
// the reverse of lock order.
func lineOrder() []calib.Target {
	out := make([]calib.Target, len(calib.Targets))
	for i, t := range calib.Targets {
		out[len(out)-1-i] = t
	}
	return out
}

// Lines renders one report cycle, one line per target.
// Format is fixed: "CALBC1_<f> = <hex> CALDCO_<f> = <hex>\n\r".
func Lines(buf calib.Buffer) []string {
	targets := lineOrder()
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		p := buf.Pair(t)
		out = append(out, fmt.Sprintf("CALBC1_%s = %x CALDCO_%s = %x\n\r", t.Name, p.BC1, t.Name, p.DCO))
	}
	return out
}

// pairJSON is one target in the published document.
type pairJSON struct {
	MHz    int    `json:"mhz"`
	CALBC1 string `json:"calbc1"`
	CALDCO string `json:"caldco"`
}

// document is the published form of the stored block.
type document struct {
	Block   string     `json:"block"`
	Targets []pairJSON `json:"targets"`
}

// Document encodes the stored block for publication.
func Document(buf calib.Buffer) ([]byte, error) {
	doc := document{Block: buf.String()}
	for _, t := range lineOrder() {
		p := buf.Pair(t)
		doc.Targets = append(doc.Targets, pairJSON{
			MHz:    t.MHz,
			CALBC1: fmt.Sprintf("0x%02X", p.BC1),
			CALDCO: fmt.Sprintf("0x%02X", p.DCO),
		})
	}
	return json.Marshal(doc)
}
