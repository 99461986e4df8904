package detection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// Detection errors.
var (
	// ErrDetectorRegistered indicates a duplicate strategy name.
	ErrDetectorRegistered = errors.New("detector already registered")

	// ErrMalformedTXT indicates endpoint TXT records missing required
	// keys.
	ErrMalformedTXT = errors.New("malformed endpoint TXT records")
)

// Endpoint is a connectable remote driver endpoint.
type Endpoint struct {
	// InstanceName is the advertised service instance.
	InstanceName string

	// Host is the advertised host name.
	Host string

	// Addresses are the resolved addresses, in preference order.
	Addresses []string

	// Port is the TCP port the endpoint listens on.
	Port uint16

	// DriverType is the driver kind the endpoint serves.
	DriverType wire.DriverType

	// ProcessID is the endpoint's process id, 0 when unknown.
	ProcessID int
}

// Detector is one endpoint discovery strategy.
type Detector interface {
	// Name identifies the strategy.
	Name() string

	// Detect reports endpoints on the returned channel until the
	// context is cancelled. The channel is closed when detection
	// stops.
	Detect(ctx context.Context) (<-chan Endpoint, error)
}

// Registry runs registered detection strategies and funnels their
// endpoints to one callback, dropping duplicates by instance name.
type Registry struct {
	mu        sync.Mutex
	detectors map[string]Detector
	order     []Detector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Register adds a strategy. Names must be unique.
func (r *Registry) Register(d Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.detectors[d.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDetectorRegistered, d.Name())
	}
	r.detectors[d.Name()] = d
	r.order = append(r.order, d)
	return nil
}

// Detectors returns the registered strategies in registration order.
func (r *Registry) Detectors() []Detector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Detector(nil), r.order...)
}

// Run starts every strategy and invokes fn for each endpoint seen
// first. It blocks until the context is cancelled and all strategies
// stopped.
func (r *Registry) Run(ctx context.Context, fn func(Endpoint)) error {
	var wg sync.WaitGroup
	seen := make(map[string]struct{})
	var seenMu sync.Mutex

	for _, d := range r.Detectors() {
		endpoints, err := d.Detect(ctx)
		if err != nil {
			return fmt.Errorf("detector %q: %w", d.Name(), err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for endpoint := range endpoints {
				seenMu.Lock()
				_, dup := seen[endpoint.InstanceName]
				if !dup {
					seen[endpoint.InstanceName] = struct{}{}
				}
				seenMu.Unlock()
				if !dup {
					fn(endpoint)
				}
			}
		}()
	}

	wg.Wait()
	return nil
}

// ServiceEntry is raw mDNS service entry data, decoupled from the
// zeroconf types so conversions stay testable without a network.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToEndpoint converts a ServiceEntry to an Endpoint.
func (e *ServiceEntry) ToEndpoint() (Endpoint, error) {
	driverType, pid, err := DecodeEndpointTXT(e.Text)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{
		InstanceName: e.Instance,
		Host:         e.Host,
		Addresses:    e.Addrs,
		Port:         e.Port,
		DriverType:   driverType,
		ProcessID:    pid,
	}, nil
}

// TXT record keys for advertised endpoints.
const (
	txtKeyDriverType = "dt"
	txtKeyProcessID  = "pid"
)

// EncodeEndpointTXT builds the TXT records describing an endpoint.
func EncodeEndpointTXT(driverType wire.DriverType, processID int) []string {
	return []string{
		txtKeyDriverType + "=" + string(rune(driverType)),
		txtKeyProcessID + "=" + strconv.Itoa(processID),
	}
}

// DecodeEndpointTXT parses endpoint TXT records. The driver type key
// is required; a missing process id decodes as 0.
func DecodeEndpointTXT(records []string) (wire.DriverType, int, error) {
	var driverType wire.DriverType
	processID := 0
	for _, record := range records {
		for i := 0; i < len(record); i++ {
			if record[i] != '=' {
				continue
			}
			key, value := record[:i], record[i+1:]
			switch key {
			case txtKeyDriverType:
				if len(value) == 1 {
					driverType = wire.DriverType(value[0])
				}
			case txtKeyProcessID:
				if pid, err := strconv.Atoi(value); err == nil {
					processID = pid
				}
			}
			break
		}
	}
	if !driverType.Valid() {
		return 0, 0, fmt.Errorf("%w: missing or invalid driver type", ErrMalformedTXT)
	}
	return driverType, processID, nil
}
