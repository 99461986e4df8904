package detection

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// mDNS constants for advertised endpoints.
const (
	// ServiceType is the mDNS service type endpoints register under.
	ServiceType = "_rdpipe._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// AdvertiserConfig configures the mDNS advertiser.
type AdvertiserConfig struct {
	// Interface selects one network interface. Empty means all.
	Interface string

	// TTL is the DNS record TTL. Zero means DefaultTTL.
	TTL time.Duration
}

// MDNSAdvertiser advertises a local endpoint so remote hosts can find
// it.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates an advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	return &MDNSAdvertiser{config: config}
}

func (a *MDNSAdvertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise registers the endpoint. An earlier registration is
// replaced.
func (a *MDNSAdvertiser) Advertise(driverType wire.DriverType, port uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	pid := os.Getpid()
	instanceName := fmt.Sprintf("RDPipe-%s-%d", driverType, pid)

	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		int(port),
		EncodeEndpointTXT(driverType, pid),
		a.interfaces(),
		zeroconf.TTL(uint32(a.config.TTL.Seconds())),
	)
	if err != nil {
		return fmt.Errorf("register endpoint service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the advertisement.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// MDNSDetector browses for advertised endpoints. It implements
// Detector.
type MDNSDetector struct {
	// Interface selects one network interface. Empty means all.
	Interface string

	// DriverType filters results to one driver kind. Zero reports
	// both kinds.
	DriverType wire.DriverType
}

// Name identifies the strategy.
func (d *MDNSDetector) Name() string { return "mdns" }

// Detect browses until the context is cancelled.
func (d *MDNSDetector) Detect(ctx context.Context) (<-chan Endpoint, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan Endpoint)

	var opts []zeroconf.ClientOption
	if d.Interface != "" {
		if iface, err := net.InterfaceByName(d.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	go func() {
		defer close(out)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				endpoint, ok := d.entryToEndpoint(entry)
				if !ok {
					continue
				}
				select {
				case out <- endpoint:
				case <-ctx.Done():
					return
				}
			case <-removed:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

func (d *MDNSDetector) entryToEndpoint(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	raw := ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
	endpoint, err := raw.ToEndpoint()
	if err != nil {
		return Endpoint{}, false
	}
	if d.DriverType != 0 && endpoint.DriverType != d.DriverType {
		return Endpoint{}, false
	}
	return endpoint, true
}

var _ Detector = (*MDNSDetector)(nil)
