// Package auxbus implements the AUX bus protocol.
package auxbus

// The AUX protocol is a checksummed, address-routed binary packet protocol
// spoken over a shared serial link between a host application and a set of
// addressable motor and sensor peripherals.
//
// This package provides the wire codec (Packet) and the synchronous
// transaction layer (Communicator). It does not interpret command payloads
// and it does not own the link: callers supply a Channel and must serialize
// transactions against it themselves.
//
// Producer: addressable peripherals on the bus
// Consumer: host application or remote proxy
