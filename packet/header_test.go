package packet

import (
	"reflect"
	"testing"
)

func TestIPv4Header_RoundTrip(t *testing.T) {
	h := IPv4Header{
		TOS:           0x10,
		TotalLength:   1032,
		ID:            0xbeef,
		FlagsFragment: 0x4000,
		TTL:           64,
		Protocol:      ProtocolTCP,
		Checksum:      0xabcd,
		Source:        [4]byte{192, 168, 0, 1},
		Destination:   [4]byte{8, 8, 8, 8},
	}
	b := make([]byte, IPv4HeaderLen)
	if err := h.MarshalTo(b); err != nil {
		t.Fatalf("MarshalTo() unexpected error = %v", err)
	}
	expect := []byte{
		0x45, 0x10, 0x04, 0x08, 0xbe, 0xef, 0x40, 0x00,
		0x40, 0x06, 0xab, 0xcd, 192, 168, 0, 1, 8, 8, 8, 8,
	}
	if !reflect.DeepEqual(b, expect) {
		t.Errorf("MarshalTo() = %x; expect %x", b, expect)
	}
	got, err := ParseIPv4Header(b)
	if err != nil {
		t.Fatalf("ParseIPv4Header() unexpected error = %v", err)
	}
	if got != h {
		t.Errorf("ParseIPv4Header() = %+v; expect %+v", got, h)
	}
}

func TestParseIPv4Header_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"short", make([]byte, IPv4HeaderLen-1)},
		{"version6", append([]byte{0x65}, make([]byte, IPv4HeaderLen-1)...)},
		{"options", append([]byte{0x46}, make([]byte, IPv4HeaderLen+3)...)},
	}
	for _, test := range tests {
		if _, err := ParseIPv4Header(test.input); err == nil {
			t.Errorf("ParseIPv4Header(%s) expected error", test.name)
		}
	}
}

func TestTCPHeader_MarshalTo(t *testing.T) {
	h := TCPHeader{
		SourcePort:      54321,
		DestinationPort: 443,
		Seq:             12345,
		Flags:           FlagSyn,
		Window:          0x7210,
	}
	b := make([]byte, TCPHeaderLen)
	if err := h.MarshalTo(b); err != nil {
		t.Fatalf("MarshalTo() unexpected error = %v", err)
	}
	expect := []byte{
		0xd4, 0x31, // source port (54321)
		0x01, 0xbb, // destination port (443)
		0x00, 0x00, 0x30, 0x39, // sequence number (12345)
		0x00, 0x00, 0x00, 0x00, // acknowledgment number
		0x50,       // data offset
		0x02,       // SYN
		0x72, 0x10, // window
		0x00, 0x00, // checksum
		0x00, 0x00, // urgent pointer
	}
	if !reflect.DeepEqual(b, expect) {
		t.Errorf("MarshalTo() = %x; expect %x", b, expect)
	}
	got, err := ParseTCPHeader(b)
	if err != nil {
		t.Fatalf("ParseTCPHeader() unexpected error = %v", err)
	}
	if got != h {
		t.Errorf("ParseTCPHeader() = %+v; expect %+v", got, h)
	}
}

func TestPseudoHeader_MarshalTo(t *testing.T) {
	h := PseudoHeader{
		Source:      [4]byte{192, 168, 0, 1},
		Destination: [4]byte{8, 8, 8, 8},
		Protocol:    ProtocolTCP,
		Length:      TCPHeaderLen + DefaultPayloadLen,
	}
	b := make([]byte, PseudoHeaderLen)
	if err := h.MarshalTo(b); err != nil {
		t.Fatalf("MarshalTo() unexpected error = %v", err)
	}
	expect := []byte{192, 168, 0, 1, 8, 8, 8, 8, 0x00, 0x06, 0x03, 0xf4}
	if !reflect.DeepEqual(b, expect) {
		t.Errorf("MarshalTo() = %x; expect %x", b, expect)
	}
}

func TestMarshalTo_ShortBuffer(t *testing.T) {
	short := make([]byte, 4)
	if err := (&IPv4Header{}).MarshalTo(short); err != ErrShortBuffer {
		t.Errorf("IPv4Header.MarshalTo() = %v; expect %v", err, ErrShortBuffer)
	}
	if err := (&TCPHeader{}).MarshalTo(short); err != ErrShortBuffer {
		t.Errorf("TCPHeader.MarshalTo() = %v; expect %v", err, ErrShortBuffer)
	}
	if err := (&PseudoHeader{}).MarshalTo(short); err != ErrShortBuffer {
		t.Errorf("PseudoHeader.MarshalTo() = %v; expect %v", err, ErrShortBuffer)
	}
	if _, err := ParseTCPHeader(short); err != ErrShortBuffer {
		t.Errorf("ParseTCPHeader() = %v; expect %v", err, ErrShortBuffer)
	}
}
