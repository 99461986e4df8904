package detection

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

func TestEndpointTXTRoundTrip(t *testing.T) {
	records := EncodeEndpointTXT(wire.DriverBraille, 1234)

	driverType, pid, err := DecodeEndpointTXT(records)
	require.NoError(t, err)
	assert.Equal(t, wire.DriverBraille, driverType)
	assert.Equal(t, 1234, pid)
}

func TestDecodeEndpointTXTMissingDriverType(t *testing.T) {
	_, _, err := DecodeEndpointTXT([]string{"pid=10"})
	assert.ErrorIs(t, err, ErrMalformedTXT)

	_, _, err = DecodeEndpointTXT([]string{"dt=Q", "pid=10"})
	assert.ErrorIs(t, err, ErrMalformedTXT)
}

func TestDecodeEndpointTXTDefaultsProcessID(t *testing.T) {
	driverType, pid, err := DecodeEndpointTXT([]string{"dt=S"})
	require.NoError(t, err)
	assert.Equal(t, wire.DriverSpeech, driverType)
	assert.Equal(t, 0, pid)
}

type staticDetector struct {
	name      string
	endpoints []Endpoint
}

func (d *staticDetector) Name() string { return d.name }

func (d *staticDetector) Detect(ctx context.Context) (<-chan Endpoint, error) {
	out := make(chan Endpoint)
	go func() {
		defer close(out)
		for _, endpoint := range d.endpoints {
			select {
			case out <- endpoint:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&staticDetector{name: "a"}))
	assert.ErrorIs(t, registry.Register(&staticDetector{name: "a"}), ErrDetectorRegistered)
	assert.Len(t, registry.Detectors(), 1)
}

func TestRegistryRunDeduplicates(t *testing.T) {
	speech := Endpoint{InstanceName: "RDPipe-SPEECH-10", DriverType: wire.DriverSpeech, ProcessID: 10}
	braille := Endpoint{InstanceName: "RDPipe-BRAILLE-10", DriverType: wire.DriverBraille, ProcessID: 10}

	registry := NewRegistry()
	require.NoError(t, registry.Register(&staticDetector{
		name:      "first",
		endpoints: []Endpoint{speech, braille},
	}))
	require.NoError(t, registry.Register(&staticDetector{
		name:      "second",
		endpoints: []Endpoint{speech},
	}))

	var mu sync.Mutex
	var found []Endpoint
	err := registry.Run(context.Background(), func(endpoint Endpoint) {
		mu.Lock()
		found = append(found, endpoint)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Len(t, found, 2)
	names := map[string]bool{}
	for _, endpoint := range found {
		names[endpoint.InstanceName] = true
	}
	assert.True(t, names["RDPipe-SPEECH-10"])
	assert.True(t, names["RDPipe-BRAILLE-10"])
}

func TestServiceEntryToEndpoint(t *testing.T) {
	entry := ServiceEntry{
		Instance: "RDPipe-SPEECH-10",
		Host:     "host.local.",
		Port:     8765,
		Text:     []string{"dt=S", "pid=10"},
		Addrs:    []string{"192.168.1.10"},
	}

	endpoint, err := entry.ToEndpoint()
	require.NoError(t, err)
	assert.Equal(t, Endpoint{
		InstanceName: "RDPipe-SPEECH-10",
		Host:         "host.local.",
		Addresses:    []string{"192.168.1.10"},
		Port:         8765,
		DriverType:   wire.DriverSpeech,
		ProcessID:    10,
	}, endpoint)

	bad := ServiceEntry{Instance: "x", Text: []string{"pid=10"}}
	_, err = bad.ToEndpoint()
	assert.ErrorIs(t, err, ErrMalformedTXT)
}
