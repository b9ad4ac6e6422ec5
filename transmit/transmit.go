// Package transmit sends prebuilt IPv4 packets over a raw socket and times
// each send.
package transmit

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Setup errors. They are wrapped with the underlying cause.
var (
	ErrSocket         = errors.New("raw socket creation failed")
	ErrPermission     = errors.New("raw socket requires root privileges")
	ErrHeaderIncluded = errors.New("setsockopt IP_HDRINCL failed")
)

// Timing is the outcome of one send. Start and End carry monotonic clock
// readings taken around the blocking send call.
type Timing struct {
	N     int
	Start time.Time
	End   time.Time
}

// Elapsed returns the duration of the send call.
func (t Timing) Elapsed() time.Duration {
	return t.End.Sub(t.Start)
}

// Sender transmits one fully formed IP packet.
type Sender interface {
	Send(pkt []byte) (Timing, error)
}

// RawSocket is an AF_INET raw socket with IP_HDRINCL set, bound to one
// destination.
type RawSocket struct {
	fd   int
	addr unix.SockaddrInet4
}

// CheckPrivileges returns ErrPermission when the process is not running as
// root.
func CheckPrivileges() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("%w: euid %d", ErrPermission, os.Geteuid())
	}
	return nil
}

// Open creates the raw socket. The port only fills the socket address, the
// kernel sends the TCP header found in the packet.
func Open(destination [4]byte, port uint16) (*RawSocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSocket, err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %v", ErrHeaderIncluded, err)
	}
	return &RawSocket{
		fd:   fd,
		addr: unix.SockaddrInet4{Port: int(port), Addr: destination},
	}, nil
}

// Send writes pkt to the destination. A send that writes nothing is
// reported as an error.
func (s *RawSocket) Send(pkt []byte) (Timing, error) {
	var t Timing
	var err error
	t.Start = time.Now()
	t.N, err = unix.SendmsgN(s.fd, pkt, nil, &s.addr, 0)
	t.End = time.Now()
	if err != nil {
		return t, fmt.Errorf("sendmsg: %w", err)
	}
	if t.N <= 0 {
		return t, fmt.Errorf("sendmsg: wrote %d of %d bytes", t.N, len(pkt))
	}
	return t, nil
}

// Close releases the socket.
func (s *RawSocket) Close() error {
	return unix.Close(s.fd)
}
