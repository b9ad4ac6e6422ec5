package runner

import (
	"errors"
	"fmt"
	"net"

	"synburst/packet"
	"synburst/stats"
)

// Defaults for Config.
const (
	DefaultTarget         = "10.211.55.3"
	DefaultSource         = "1.2.3.4"
	DefaultLoops          = 100
	DefaultPacketsPerLoop = 10000
)

// Config describes a sender run.
type Config struct {
	Destination     [4]byte
	Source          [4]byte
	DestinationPort uint16
	PayloadLen      int
	Filler          byte

	// Loops × PacketsPerLoop packets are attempted. Progress is reported
	// after each loop.
	Loops          int
	PacketsPerLoop int

	// Capacity is the number of one-second statistics buckets.
	Capacity int

	// Seed seeds the source port and IP ID generator. Zero picks a seed
	// from the clock.
	Seed uint64
}

// DefaultConfig returns the configuration of a full run against
// DefaultTarget.
func DefaultConfig() Config {
	cfg := Config{
		DestinationPort: packet.DefaultDestPort,
		PayloadLen:      packet.DefaultPayloadLen,
		Filler:          packet.DefaultFiller,
		Loops:           DefaultLoops,
		PacketsPerLoop:  DefaultPacketsPerLoop,
		Capacity:        stats.DefaultCapacity,
	}
	cfg.Destination, _ = ParseIPv4(DefaultTarget)
	cfg.Source, _ = ParseIPv4(DefaultSource)
	return cfg
}

// Attempts returns the total number of packets the run attempts.
func (c Config) Attempts() int {
	return c.Loops * c.PacketsPerLoop
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Loops <= 0 || c.PacketsPerLoop <= 0 {
		return fmt.Errorf("loops (%d) and packets per loop (%d) must be positive", c.Loops, c.PacketsPerLoop)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("bucket capacity %d must be positive", c.Capacity)
	}
	return c.spec().Validate()
}

func (c Config) spec() packet.Spec {
	return packet.Spec{
		Source:          c.Source,
		Destination:     c.Destination,
		DestinationPort: c.DestinationPort,
		PayloadLen:      c.PayloadLen,
		Filler:          c.Filler,
	}
}

// ParseIPv4 parses a dotted quad IPv4 address.
func ParseIPv4(s string) ([4]byte, error) {
	var addr [4]byte
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return addr, errors.New("not an IPv4 address: " + s)
	}
	copy(addr[:], ip)
	return addr, nil
}
