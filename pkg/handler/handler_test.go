package handler

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/configuration"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/protocol"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/transport"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

type fakeDriver struct {
	mu       sync.Mutex
	settings map[string]wire.Value
	order    []driver.Setting
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		settings: map[string]wire.Value{
			"rate":  wire.IntValue(50),
			"voice": wire.StringValue("kate"),
		},
		order: []driver.Setting{
			{ID: "rate", DisplayName: "Rate"},
			{ID: "voice", DisplayName: "Voice", Available: true},
		},
	}
}

func (d *fakeDriver) SupportedSettings() []driver.Setting { return d.order }

func (d *fakeDriver) SettingValue(id string) (wire.Value, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.settings[id]
	if !ok {
		return wire.Null(), driver.ErrUnknownSetting
	}
	return v, nil
}

func (d *fakeDriver) SetSettingValue(id string, value wire.Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.settings[id]; !ok {
		return driver.ErrUnknownSetting
	}
	d.settings[id] = value
	return nil
}

func (d *fakeDriver) AvailableValues(name string) (map[string]string, error) {
	if name != "availableVoices" {
		return nil, driver.ErrUnknownValueSet
	}
	return map[string]string{"kate": "Kate", "alex": "Alex"}, nil
}

type fakeSpeechDriver struct {
	*fakeDriver
	mu        sync.Mutex
	spoken    [][]driver.SpeechItem
	cancels   int
	pauses    []bool
	indexFunc func(int)
}

func newFakeSpeechDriver() *fakeSpeechDriver {
	return &fakeSpeechDriver{fakeDriver: newFakeDriver()}
}

func (d *fakeSpeechDriver) Speak(sequence []driver.SpeechItem) error {
	d.mu.Lock()
	d.spoken = append(d.spoken, sequence)
	d.mu.Unlock()
	return nil
}

func (d *fakeSpeechDriver) Cancel() error {
	d.mu.Lock()
	d.cancels++
	d.mu.Unlock()
	return nil
}

func (d *fakeSpeechDriver) Pause(paused bool) error {
	d.mu.Lock()
	d.pauses = append(d.pauses, paused)
	d.mu.Unlock()
	return nil
}

func (d *fakeSpeechDriver) SetIndexCallback(fn func(int)) { d.indexFunc = fn }

func (d *fakeSpeechDriver) spokenSequences() [][]driver.SpeechItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]driver.SpeechItem(nil), d.spoken...)
}

type fakeBrailleDriver struct {
	*fakeDriver
	mu        sync.Mutex
	displayed [][]byte
	cells     int
}

func newFakeBrailleDriver(cells int) *fakeBrailleDriver {
	return &fakeBrailleDriver{fakeDriver: newFakeDriver(), cells: cells}
}

func (d *fakeBrailleDriver) NumCells() int { return d.cells }

func (d *fakeBrailleDriver) Display(cells []byte) error {
	d.mu.Lock()
	d.displayed = append(d.displayed, append([]byte(nil), cells...))
	d.mu.Unlock()
	return nil
}

func (d *fakeBrailleDriver) GestureMap() map[string]string {
	return map[string]string{"br(fake):routing": "routeTo"}
}

func (d *fakeBrailleDriver) displayedCells() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.displayed...)
}

// fakeTransport records writes without a peer.
type fakeTransport struct {
	mu     sync.Mutex
	wrote  [][]byte
	peerID int
}

func (f *fakeTransport) Write(data []byte) (int, error) {
	f.mu.Lock()
	f.wrote = append(f.wrote, append([]byte(nil), data...))
	f.mu.Unlock()
	return len(data), nil
}

func (f *fakeTransport) WaitForRead(time.Duration) bool { return false }
func (f *fakeTransport) ID() string                     { return "fake" }
func (f *fakeTransport) RemoteAddr() string             { return "" }
func (f *fakeTransport) PeerProcessID() int             { return f.peerID }
func (f *fakeTransport) Close() error                   { return nil }

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.wrote...)
}

var _ transport.Transport = (*fakeTransport)(nil)

type binder interface {
	Bind(transport.Transport)
	Callbacks() transport.Callbacks
}

func connectPair(t *testing.T, local, remote binder) {
	t.Helper()
	a, b := net.Pipe()
	lc := transport.NewConn(a, local.Callbacks(), transport.ConnConfig{})
	rc := transport.NewConn(b, remote.Callbacks(), transport.ConnConfig{})
	local.Bind(lc)
	remote.Bind(rc)
	t.Cleanup(func() {
		lc.Close()
		rc.Close()
	})
}

func disabledStore(t *testing.T) *configuration.Store {
	t.Helper()
	store := configuration.NewStore("")
	store.Update(func(c *configuration.Config) { c.DriverSettingsManagement = false })
	return store
}

// encodeFrame builds one frame for direct OnReceive delivery.
func encodeFrame(t *testing.T, driverType wire.DriverType, command wire.Command, payload []byte) []byte {
	t.Helper()
	frame, err := wire.Encode(driverType, command, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return frame
}

func attributeFrame(t *testing.T, driverType wire.DriverType, attribute wire.Attribute, value []byte) []byte {
	t.Helper()
	return encodeFrame(t, driverType, wire.CmdAttribute, wire.JoinAttribute(attribute, value))
}

// newStringMapReceiver decodes a string-map attribute payload, as the
// controlling peer does for available value sets.
func newStringMapReceiver(attribute wire.Attribute) *protocol.AttributeReceiver {
	return protocol.NewAttributeReceiver(attribute,
		func(payload []byte) (any, error) {
			var m map[string]string
			if err := wire.Unmarshal(payload, &m); err != nil {
				return nil, err
			}
			return m, nil
		},
		protocol.StaticDefault(map[string]string{}),
	)
}
