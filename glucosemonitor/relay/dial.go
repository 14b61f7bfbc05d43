//go:build !tinygo

package relay

import (
	"context"
	"net"
	"strconv"
)

// TCPDialer dials addr over the host network stack. See SplitAddr for the
// accepted forms.
func TCPDialer(addr string) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		host, port, err := SplitAddr(addr)
		if err != nil {
			return nil, err
		}
		var d net.Dialer
		return d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	}
}
