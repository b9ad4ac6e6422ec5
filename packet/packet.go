// Package packet builds IPv4 TCP SYN packets with a fixed filler payload.
//
// Headers are serialized field by field with network byte order, so the
// checksums are computed over exactly the bytes that go on the wire.
package packet

import (
	"fmt"

	"synburst/checksum"
)

// Defaults for the fields that do not vary between packets.
const (
	DefaultPayloadLen        = 992
	DefaultFiller     byte   = 'A'
	DefaultTTL        uint8  = 64
	DefaultWindow     uint16 = 5840
	DefaultDestPort   uint16 = 80

	// MaxPayloadLen keeps the total length within the IPv4 length field.
	MaxPayloadLen = 0xffff - IPv4HeaderLen - TCPHeaderLen
)

// Spec describes one packet. Source port and ID are expected to change
// on every packet; everything else is fixed for a run.
type Spec struct {
	Source          [4]byte
	Destination     [4]byte
	SourcePort      uint16
	DestinationPort uint16
	ID              uint16
	PayloadLen      int
	Filler          byte
}

// Len returns the total length of the packet described by s.
func (s Spec) Len() int {
	return IPv4HeaderLen + TCPHeaderLen + s.PayloadLen
}

// SegmentLen returns the TCP header length plus the payload length.
func (s Spec) SegmentLen() int {
	return TCPHeaderLen + s.PayloadLen
}

// Validate reports whether s can be serialized.
func (s Spec) Validate() error {
	if s.PayloadLen < 0 || s.PayloadLen > MaxPayloadLen {
		return fmt.Errorf("payload length %d out of range [0, %d]", s.PayloadLen, MaxPayloadLen)
	}
	return nil
}

// Builder serializes packets, reusing its buffers between calls.
// A Builder is not safe for concurrent use.
type Builder struct {
	buf     []byte
	scratch []byte
}

// Build serializes s into a freshly allocated buffer.
func Build(s Spec) ([]byte, error) {
	var b Builder
	return b.Build(s)
}

// Build serializes s. The returned slice is only valid until the next call
// to Build.
func (b *Builder) Build(s Spec) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	b.buf = resize(b.buf, s.Len())
	pkt := b.buf

	payload := pkt[IPv4HeaderLen+TCPHeaderLen:]
	for i := range payload {
		payload[i] = s.Filler
	}

	ip := IPv4Header{
		TotalLength: uint16(s.Len()),
		ID:          s.ID,
		TTL:         DefaultTTL,
		Protocol:    ProtocolTCP,
		Source:      s.Source,
		Destination: s.Destination,
	}
	if err := ip.MarshalTo(pkt); err != nil {
		return nil, err
	}
	ip.Checksum = checksum.Sum(pkt[:IPv4HeaderLen])
	if err := ip.MarshalTo(pkt); err != nil {
		return nil, err
	}

	tcp := TCPHeader{
		SourcePort:      s.SourcePort,
		DestinationPort: s.DestinationPort,
		Flags:           FlagSyn,
		Window:          DefaultWindow,
	}
	segment := pkt[IPv4HeaderLen:]
	if err := tcp.MarshalTo(segment); err != nil {
		return nil, err
	}

	pseudo := PseudoHeader{
		Source:      s.Source,
		Destination: s.Destination,
		Protocol:    ProtocolTCP,
		Length:      uint16(s.SegmentLen()),
	}
	b.scratch = resize(b.scratch, PseudoHeaderLen+len(segment))
	if err := pseudo.MarshalTo(b.scratch); err != nil {
		return nil, err
	}
	copy(b.scratch[PseudoHeaderLen:], segment)
	tcp.Checksum = checksum.Sum(b.scratch)
	if err := tcp.MarshalTo(segment); err != nil {
		return nil, err
	}

	return pkt, nil
}

// resize returns a zeroed slice of length n, reusing buf when it is large
// enough.
func resize(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}
