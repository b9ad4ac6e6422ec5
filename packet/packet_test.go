package packet

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"pgregory.net/rapid"

	"synburst/checksum"
)

func testSpec() Spec {
	return Spec{
		Source:          [4]byte{1, 2, 3, 4},
		Destination:     [4]byte{10, 211, 55, 3},
		SourcePort:      54321,
		DestinationPort: DefaultDestPort,
		ID:              0x1234,
		PayloadLen:      DefaultPayloadLen,
		Filler:          DefaultFiller,
	}
}

func TestBuild_IPv4Header(t *testing.T) {
	s := testSpec()
	pkt, err := Build(s)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}

	expectedHeader := []byte{
		0x45,       // version + IHL
		0x00,       // type of service
		0x04, 0x08, // total length (1032)
		0x12, 0x34, // identification
		0x00, 0x00, // flags + fragment offset
		0x40,       // TTL
		0x06,       // protocol
		0x00, 0x00, // checksum, filled below
		1, 2, 3, 4, // source address
		10, 211, 55, 3, // destination address
	}
	binary.BigEndian.PutUint16(expectedHeader[10:12], checksum.Sum(expectedHeader))

	if !reflect.DeepEqual(pkt[:IPv4HeaderLen], expectedHeader) {
		t.Errorf("Build() IPv4 header = %x; expect %x", pkt[:IPv4HeaderLen], expectedHeader)
	}
	if !checksum.Valid(pkt[:IPv4HeaderLen]) {
		t.Errorf("Build() IPv4 header checksum does not validate")
	}
}

func TestBuild_TCPHeader(t *testing.T) {
	s := testSpec()
	pkt, err := Build(s)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}

	expectedHeader := []byte{
		0xd4, 0x31, // source port (54321)
		0x00, 0x50, // destination port (80)
		0x00, 0x00, 0x00, 0x00, // sequence number
		0x00, 0x00, 0x00, 0x00, // acknowledgment number
		0x50,       // data offset
		0x02,       // SYN
		0x16, 0xd0, // window (5840)
		0x00, 0x00, // checksum, filled below
		0x00, 0x00, // urgent pointer
	}
	pseudo := []byte{1, 2, 3, 4, 10, 211, 55, 3, 0x00, 0x06, 0x03, 0xf4}
	sum := append(append(pseudo, expectedHeader...), bytes.Repeat([]byte{'A'}, DefaultPayloadLen)...)
	binary.BigEndian.PutUint16(expectedHeader[16:18], checksum.Sum(sum))

	actualHeader := pkt[IPv4HeaderLen : IPv4HeaderLen+TCPHeaderLen]
	if !reflect.DeepEqual(actualHeader, expectedHeader) {
		t.Errorf("Build() TCP header = %x; expect %x", actualHeader, expectedHeader)
	}
	if !bytes.Equal(pkt[IPv4HeaderLen+TCPHeaderLen:], bytes.Repeat([]byte{'A'}, DefaultPayloadLen)) {
		t.Errorf("Build() payload is not filled with %q", DefaultFiller)
	}
}

func TestBuild_Gopacket(t *testing.T) {
	s := testSpec()
	pkt, err := Build(s)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}

	decoded := gopacket.NewPacket(pkt, layers.LayerTypeIPv4, gopacket.Default)
	if errLayer := decoded.ErrorLayer(); errLayer != nil {
		t.Fatalf("gopacket decode error = %v", errLayer.Error())
	}
	ip, ok := decoded.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		t.Fatalf("no IPv4 layer in %v", decoded)
	}
	tcp, ok := decoded.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok {
		t.Fatalf("no TCP layer in %v", decoded)
	}
	if int(ip.Length) != s.Len() || ip.TTL != DefaultTTL || ip.Protocol != layers.IPProtocolTCP {
		t.Errorf("IPv4 = len %d ttl %d proto %v; expect len %d ttl %d proto TCP", ip.Length, ip.TTL, ip.Protocol, s.Len(), DefaultTTL)
	}
	if !tcp.SYN || tcp.ACK || tcp.RST || tcp.FIN {
		t.Errorf("TCP flags = %+v; expect SYN only", tcp)
	}
	if tcp.SrcPort != layers.TCPPort(s.SourcePort) || tcp.DstPort != layers.TCPPort(s.DestinationPort) {
		t.Errorf("TCP ports = %d -> %d; expect %d -> %d", tcp.SrcPort, tcp.DstPort, s.SourcePort, s.DestinationPort)
	}
	if len(tcp.Payload) != s.PayloadLen {
		t.Errorf("TCP payload length = %d; expect %d", len(tcp.Payload), s.PayloadLen)
	}

	// gopacket recomputes both checksums; the bytes must not change.
	tcp.SetNetworkLayerForChecksum(ip)
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	err = gopacket.SerializeLayers(buf, opts, ip, tcp, gopacket.Payload(tcp.Payload))
	if err != nil {
		t.Fatalf("gopacket.SerializeLayers() unexpected error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), pkt) {
		t.Errorf("gopacket serialization differs:\n got %x\nwant %x", buf.Bytes(), pkt)
	}
}

func TestBuilder_Reuse(t *testing.T) {
	var b Builder
	first := testSpec()
	second := testSpec()
	second.SourcePort = 1
	second.ID = 2
	second.PayloadLen = 3

	if _, err := b.Build(first); err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}
	reused, err := b.Build(second)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}
	fresh, err := Build(second)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}
	if !bytes.Equal(reused, fresh) {
		t.Errorf("Builder.Build() after reuse = %x; expect %x", reused, fresh)
	}
}

func TestBuild_InvalidPayload(t *testing.T) {
	for _, n := range []int{-1, MaxPayloadLen + 1} {
		s := testSpec()
		s.PayloadLen = n
		if _, err := Build(s); err == nil {
			t.Errorf("Build(PayloadLen=%d) expected error", n)
		}
	}
}

func TestBuild_Properties(t *testing.T) {
	var b Builder
	rapid.Check(t, func(t *rapid.T) {
		s := Spec{
			SourcePort:      rapid.Uint16().Draw(t, "sport"),
			DestinationPort: rapid.Uint16().Draw(t, "dport"),
			ID:              rapid.Uint16().Draw(t, "id"),
			PayloadLen:      rapid.IntRange(0, 1460).Draw(t, "payload"),
			Filler:          rapid.Byte().Draw(t, "filler"),
		}
		copy(s.Source[:], rapid.SliceOfN(rapid.Byte(), 4, 4).Draw(t, "src"))
		copy(s.Destination[:], rapid.SliceOfN(rapid.Byte(), 4, 4).Draw(t, "dst"))

		pkt, err := b.Build(s)
		if err != nil {
			t.Fatalf("Build() unexpected error = %v", err)
		}
		if len(pkt) != IPv4HeaderLen+TCPHeaderLen+s.PayloadLen {
			t.Fatalf("len(pkt) = %d; expect %d", len(pkt), IPv4HeaderLen+TCPHeaderLen+s.PayloadLen)
		}
		ip, err := ParseIPv4Header(pkt)
		if err != nil {
			t.Fatalf("ParseIPv4Header() unexpected error = %v", err)
		}
		if int(ip.TotalLength) != len(pkt) {
			t.Fatalf("TotalLength = %d; expect %d", ip.TotalLength, len(pkt))
		}
		if ip.ID != s.ID || ip.Source != s.Source || ip.Destination != s.Destination {
			t.Fatalf("IPv4 header %+v does not match %+v", ip, s)
		}
		if !checksum.Valid(pkt[:IPv4HeaderLen]) {
			t.Fatalf("IPv4 checksum %#04x does not validate", ip.Checksum)
		}

		tcp, err := ParseTCPHeader(pkt[IPv4HeaderLen:])
		if err != nil {
			t.Fatalf("ParseTCPHeader() unexpected error = %v", err)
		}
		if tcp.Flags != FlagSyn || tcp.SourcePort != s.SourcePort || tcp.DestinationPort != s.DestinationPort {
			t.Fatalf("TCP header %+v does not match %+v", tcp, s)
		}
		pseudo := PseudoHeader{
			Source:      s.Source,
			Destination: s.Destination,
			Protocol:    ProtocolTCP,
			Length:      uint16(s.SegmentLen()),
		}
		sum := make([]byte, PseudoHeaderLen+s.SegmentLen())
		pseudo.MarshalTo(sum)
		copy(sum[PseudoHeaderLen:], pkt[IPv4HeaderLen:])
		if !checksum.Valid(sum) {
			t.Fatalf("TCP checksum %#04x does not validate", tcp.Checksum)
		}
	})
}
