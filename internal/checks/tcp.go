package checks

import (
	"errors"
	"fmt"
	"net"
	"time"

	tcpshaker "github.com/tevino/tcp-shaker"
)

// TCPChecker checks addr over TCP. A half-open check completes the handshake
// and resets the connection, so the platform never sees an accepted request.
type TCPChecker struct {
	addr     string
	timeout  time.Duration
	halfOpen bool
}

func NewTCPChecker(typ, addr string, timeout time.Duration) Checker {
	return &TCPChecker{
		addr:     addr,
		timeout:  timeout,
		halfOpen: typ == TCP_HALF,
	}
}

func NewTCPFullChecker(addr string, timeout time.Duration) Checker {
	return NewTCPChecker(TCP_FULL, addr, timeout)
}

func NewTCPHalfChecker(addr string, timeout time.Duration) Checker {
	return NewTCPChecker(TCP_HALF, addr, timeout)
}

func (tc *TCPChecker) Check() error {
	if tc.halfOpen {
		return tc.handshake()
	}

	conn, err := net.DialTimeout("tcp", tc.addr, tc.timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (tc *TCPChecker) handshake() error {
	err := tcpshaker.DefaultChecker().CheckAddr(tc.addr, tc.timeout)
	if errors.Is(err, tcpshaker.ErrTimeout) {
		return fmt.Errorf("handshake with %s timed out after %s", tc.addr, tc.timeout)
	}
	return err
}
