package examples

import (
	"fmt"
	"sync"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// SimulatedDisplay is an in-memory braille display.
type SimulatedDisplay struct {
	cells int

	mu       sync.Mutex
	settings map[string]wire.Value
	window   []byte

	// OnDisplay receives every written cell window. Nil discards
	// output.
	OnDisplay func(cells []byte)
}

// NewSimulatedDisplay creates a display with the given cell count.
func NewSimulatedDisplay(cells int) *SimulatedDisplay {
	return &SimulatedDisplay{
		cells: cells,
		settings: map[string]wire.Value{
			"dotFirmness": wire.IntValue(5),
		},
	}
}

// SupportedSettings returns the display settings.
func (d *SimulatedDisplay) SupportedSettings() []driver.Setting {
	return []driver.Setting{
		{ID: "dotFirmness", DisplayName: "Dot firmness"},
	}
}

// SettingValue returns the current value of a setting.
func (d *SimulatedDisplay) SettingValue(id string) (wire.Value, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.settings[id]
	if !ok {
		return wire.Null(), fmt.Errorf("%w: %q", driver.ErrUnknownSetting, id)
	}
	return v, nil
}

// SetSettingValue applies a value to a setting.
func (d *SimulatedDisplay) SetSettingValue(id string, value wire.Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.settings[id]; !ok {
		return fmt.Errorf("%w: %q", driver.ErrUnknownSetting, id)
	}
	d.settings[id] = value
	return nil
}

// AvailableValues returns the enumerable value sets. The display has
// none.
func (d *SimulatedDisplay) AvailableValues(name string) (map[string]string, error) {
	return nil, fmt.Errorf("%w: %q", driver.ErrUnknownValueSet, name)
}

// NumCells returns the display size.
func (d *SimulatedDisplay) NumCells() int {
	return d.cells
}

// Display stores the cell window and reports it through the output
// callback.
func (d *SimulatedDisplay) Display(cells []byte) error {
	window := append([]byte(nil), cells...)

	d.mu.Lock()
	d.window = window
	output := d.OnDisplay
	d.mu.Unlock()

	if output != nil {
		output(window)
	}
	return nil
}

// Window returns the last written cell window.
func (d *SimulatedDisplay) Window() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.window...)
}

// GestureMap returns the gestures the simulated display produces.
func (d *SimulatedDisplay) GestureMap() map[string]string {
	return map[string]string{
		"br(simulated):routing":    "routeTo",
		"br(simulated):scrollBack": "scrollBack",
		"br(simulated):scrollFwd":  "scrollForward",
	}
}

var _ driver.BrailleDriver = (*SimulatedDisplay)(nil)
