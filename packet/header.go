package packet

import (
	"encoding/binary"
	"errors"
)

// Header lengths without options.
const (
	IPv4HeaderLen   = 20
	TCPHeaderLen    = 20
	PseudoHeaderLen = 12
)

// Protocol numbers and TCP flags.
const (
	ProtocolTCP uint8 = 6

	FlagFin    uint8 = 0x01
	FlagSyn    uint8 = 0x02
	FlagRst    uint8 = 0x04
	FlagAck    uint8 = 0x10
	FlagSynAck uint8 = FlagSyn + FlagAck
)

// ErrShortBuffer is returned when a buffer cannot hold a header.
var ErrShortBuffer = errors.New("buffer too short for header")

// IPv4Header is an IPv4 header without options.
//
//	offset width field
//	0      1     version (4 bits) | IHL (4 bits)
//	1      1     type of service
//	2      2     total length
//	4      2     identification
//	6      2     flags (3 bits) | fragment offset (13 bits)
//	8      1     time to live
//	9      1     protocol
//	10     2     header checksum
//	12     4     source address
//	16     4     destination address
type IPv4Header struct {
	TOS           uint8
	TotalLength   uint16
	ID            uint16
	FlagsFragment uint16
	TTL           uint8
	Protocol      uint8
	Checksum      uint16
	Source        [4]byte
	Destination   [4]byte
}

// MarshalTo writes h into the first IPv4HeaderLen bytes of b.
func (h *IPv4Header) MarshalTo(b []byte) error {
	if len(b) < IPv4HeaderLen {
		return ErrShortBuffer
	}
	b[0] = 4<<4 | IPv4HeaderLen/4
	b[1] = h.TOS
	binary.BigEndian.PutUint16(b[2:4], h.TotalLength)
	binary.BigEndian.PutUint16(b[4:6], h.ID)
	binary.BigEndian.PutUint16(b[6:8], h.FlagsFragment)
	b[8] = h.TTL
	b[9] = h.Protocol
	binary.BigEndian.PutUint16(b[10:12], h.Checksum)
	copy(b[12:16], h.Source[:])
	copy(b[16:20], h.Destination[:])
	return nil
}

// ParseIPv4Header reads an IPv4 header from b. Options are not supported.
func ParseIPv4Header(b []byte) (IPv4Header, error) {
	var h IPv4Header
	if len(b) < IPv4HeaderLen {
		return h, ErrShortBuffer
	}
	if b[0]>>4 != 4 || b[0]&0x0f != IPv4HeaderLen/4 {
		return h, errors.New("not an IPv4 header without options")
	}
	h.TOS = b[1]
	h.TotalLength = binary.BigEndian.Uint16(b[2:4])
	h.ID = binary.BigEndian.Uint16(b[4:6])
	h.FlagsFragment = binary.BigEndian.Uint16(b[6:8])
	h.TTL = b[8]
	h.Protocol = b[9]
	h.Checksum = binary.BigEndian.Uint16(b[10:12])
	copy(h.Source[:], b[12:16])
	copy(h.Destination[:], b[16:20])
	return h, nil
}

// TCPHeader is a TCP header without options.
//
//	offset width field
//	0      2     source port
//	2      2     destination port
//	4      4     sequence number
//	8      4     acknowledgment number
//	12     1     data offset (4 bits) | reserved (4 bits)
//	13     1     flags
//	14     2     window
//	16     2     checksum
//	18     2     urgent pointer
type TCPHeader struct {
	SourcePort      uint16
	DestinationPort uint16
	Seq             uint32
	Ack             uint32
	Flags           uint8
	Window          uint16
	Checksum        uint16
	Urgent          uint16
}

// MarshalTo writes h into the first TCPHeaderLen bytes of b.
func (h *TCPHeader) MarshalTo(b []byte) error {
	if len(b) < TCPHeaderLen {
		return ErrShortBuffer
	}
	binary.BigEndian.PutUint16(b[0:2], h.SourcePort)
	binary.BigEndian.PutUint16(b[2:4], h.DestinationPort)
	binary.BigEndian.PutUint32(b[4:8], h.Seq)
	binary.BigEndian.PutUint32(b[8:12], h.Ack)
	b[12] = TCPHeaderLen / 4 << 4
	b[13] = h.Flags
	binary.BigEndian.PutUint16(b[14:16], h.Window)
	binary.BigEndian.PutUint16(b[16:18], h.Checksum)
	binary.BigEndian.PutUint16(b[18:20], h.Urgent)
	return nil
}

// ParseTCPHeader reads a TCP header from b.
func ParseTCPHeader(b []byte) (TCPHeader, error) {
	var h TCPHeader
	if len(b) < TCPHeaderLen {
		return h, ErrShortBuffer
	}
	h.SourcePort = binary.BigEndian.Uint16(b[0:2])
	h.DestinationPort = binary.BigEndian.Uint16(b[2:4])
	h.Seq = binary.BigEndian.Uint32(b[4:8])
	h.Ack = binary.BigEndian.Uint32(b[8:12])
	h.Flags = b[13]
	h.Window = binary.BigEndian.Uint16(b[14:16])
	h.Checksum = binary.BigEndian.Uint16(b[16:18])
	h.Urgent = binary.BigEndian.Uint16(b[18:20])
	return h, nil
}

// PseudoHeader is the IPv4 pseudo-header prepended to a TCP segment when
// computing its checksum. It is never transmitted.
//
//	offset width field
//	0      4     source address
//	4      4     destination address
//	8      1     zero
//	9      1     protocol
//	10     2     TCP segment length
type PseudoHeader struct {
	Source      [4]byte
	Destination [4]byte
	Protocol    uint8
	Length      uint16
}

// MarshalTo writes h into the first PseudoHeaderLen bytes of b.
func (h *PseudoHeader) MarshalTo(b []byte) error {
	if len(b) < PseudoHeaderLen {
		return ErrShortBuffer
	}
	copy(b[0:4], h.Source[:])
	copy(b[4:8], h.Destination[:])
	b[8] = 0x00
	b[9] = h.Protocol
	binary.BigEndian.PutUint16(b[10:12], h.Length)
	return nil
}
