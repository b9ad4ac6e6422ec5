package transmit

import (
	"bufio"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const snapLen = 65536

// Recorder wraps a Sender and appends every successfully sent packet to a
// pcap stream. Writing happens after the wrapped send has been timed.
type Recorder struct {
	Sender
	// Err is the first capture write error. Capture stops after it.
	Err error

	w  *pcapgo.Writer
	bw *bufio.Writer
	fp *os.File
}

// NewRecorder creates the capture file at path, truncating it.
func NewRecorder(s Sender, path string) (*Recorder, error) {
	fp, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(fp)
	w := pcapgo.NewWriter(bw)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeRaw); err != nil {
		fp.Close()
		return nil, err
	}
	return &Recorder{Sender: s, w: w, bw: bw, fp: fp}, nil
}

// Send sends pkt with the wrapped Sender and captures it on success.
func (r *Recorder) Send(pkt []byte) (Timing, error) {
	t, err := r.Sender.Send(pkt)
	if err != nil || r.Err != nil {
		return t, err
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     t.Start,
		CaptureLength: len(pkt),
		Length:        len(pkt),
	}
	r.Err = r.w.WritePacket(ci, pkt)
	return t, nil
}

// Close flushes and closes the capture file. It does not close the wrapped
// Sender.
func (r *Recorder) Close() error {
	err := r.bw.Flush()
	if cerr := r.fp.Close(); err == nil {
		err = cerr
	}
	return err
}
