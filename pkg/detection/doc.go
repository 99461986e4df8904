// Package detection finds remote driver endpoints a handler can
// connect to.
//
// A host's device scan loop accepts Detector strategies through a
// Registry; each strategy reports the endpoints it can see. The
// package ships one concrete strategy, an mDNS browser for endpoints
// advertised over the network, plus the matching Advertiser the
// serving side runs. Hosts with their own discovery channel (a
// session broker, a virtual channel registry) plug in by implementing
// Detector.
package detection
