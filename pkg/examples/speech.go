package examples

import (
	"fmt"
	"sync"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// SimulatedSynth is an in-memory speech synthesizer. Spoken text is
// reported through the output callback; index markers are reported
// back through the registered index callback after a short simulated
// utterance delay.
type SimulatedSynth struct {
	mu       sync.Mutex
	settings map[string]wire.Value
	paused   bool
	indexFn  func(int)

	// OnOutput receives every spoken text chunk. Nil discards output.
	OnOutput func(text string)

	// UtteranceDelay is the simulated time per spoken item before an
	// index marker is reported. Zero reports markers immediately.
	UtteranceDelay time.Duration
}

// NewSimulatedSynth creates a synthesizer with a default voice and
// rate.
func NewSimulatedSynth() *SimulatedSynth {
	return &SimulatedSynth{
		settings: map[string]wire.Value{
			"rate":   wire.IntValue(50),
			"pitch":  wire.IntValue(50),
			"volume": wire.IntValue(100),
			"voice":  wire.StringValue("kate"),
		},
	}
}

// SupportedSettings returns the synthesizer settings.
func (s *SimulatedSynth) SupportedSettings() []driver.Setting {
	return []driver.Setting{
		{ID: "rate", DisplayName: "Rate"},
		{ID: "pitch", DisplayName: "Pitch"},
		{ID: "volume", DisplayName: "Volume"},
		{ID: "voice", DisplayName: "Voice", Available: true},
	}
}

// SettingValue returns the current value of a setting.
func (s *SimulatedSynth) SettingValue(id string) (wire.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[id]
	if !ok {
		return wire.Null(), fmt.Errorf("%w: %q", driver.ErrUnknownSetting, id)
	}
	return v, nil
}

// SetSettingValue applies a value to a setting.
func (s *SimulatedSynth) SetSettingValue(id string, value wire.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[id]; !ok {
		return fmt.Errorf("%w: %q", driver.ErrUnknownSetting, id)
	}
	s.settings[id] = value
	return nil
}

// AvailableValues returns the enumerable value sets.
func (s *SimulatedSynth) AvailableValues(name string) (map[string]string, error) {
	if name != "availableVoices" {
		return nil, fmt.Errorf("%w: %q", driver.ErrUnknownValueSet, name)
	}
	return map[string]string{
		"kate": "Kate",
		"alex": "Alex",
		"siri": "Siri",
	}, nil
}

// Speak reports text items through the output callback and schedules
// index marker reports.
func (s *SimulatedSynth) Speak(sequence []driver.SpeechItem) error {
	s.mu.Lock()
	output := s.OnOutput
	indexFn := s.indexFn
	delay := s.UtteranceDelay
	s.mu.Unlock()

	for _, item := range sequence {
		switch item.Kind {
		case driver.SpeechText:
			if output != nil {
				output(item.Text)
			}
		case driver.SpeechIndex:
			index := item.Index
			if indexFn == nil {
				continue
			}
			if delay == 0 {
				indexFn(index)
			} else {
				time.AfterFunc(delay, func() { indexFn(index) })
			}
		}
	}
	return nil
}

// Cancel discards queued speech.
func (s *SimulatedSynth) Cancel() error {
	return nil
}

// Pause suspends or resumes output.
func (s *SimulatedSynth) Pause(paused bool) error {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	return nil
}

// Paused reports the pause state.
func (s *SimulatedSynth) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetIndexCallback registers the index marker report function.
func (s *SimulatedSynth) SetIndexCallback(fn func(int)) {
	s.mu.Lock()
	s.indexFn = fn
	s.mu.Unlock()
}

var _ driver.SpeechDriver = (*SimulatedSynth)(nil)
