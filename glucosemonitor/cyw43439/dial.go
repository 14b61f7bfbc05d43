//go:build tinygo

package cyw43439

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/lneto/tcp"

	"github.com/harveysanders/glucopanel/glucosemonitor/relay"
)

// TCPBufSize fits one segment: MTU - ethhdr - iphdr - tcphdr.
const TCPBufSize = 2030

// Dialer returns a relay.DialFunc that resolves addr ("host:port") and opens
// a TCP connection over the provisioned stack.
func (p *Provisioner) Dialer(addr string) relay.DialFunc {
	return func(ctx context.Context) (relay.Conn, error) {
		return p.dial(ctx, addr)
	}
}

func (p *Provisioner) dial(ctx context.Context, addr string) (relay.Conn, error) {
	const pollTime = 5 * time.Millisecond

	host, port, err := relay.SplitAddr(addr)
	if err != nil {
		return nil, err
	}
	rstack := p.s.StackRetrying(pollTime)

	ip, err := netip.ParseAddr(host)
	if err != nil {
		p.log.Info("dns:resolving " + host)
		addrs, err := rstack.DoLookupIP(host, 5*time.Second, 3)
		if err != nil {
			return nil, errors.New("dns lookup for " + host + ": " + err.Error())
		}
		if len(addrs) == 0 {
			return nil, errors.New("dns lookup for " + host + ": no addresses returned")
		}
		ip = addrs[0]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := &tcpConn{}
	err = conn.Configure(tcp.ConnConfig{
		RxBuf:             make([]byte, TCPBufSize),
		TxBuf:             make([]byte, TCPBufSize),
		TxPacketQueueSize: 3,
	})
	if err != nil {
		return nil, errors.New("tcp configure:" + err.Error())
	}

	localPort := uint16(p.s.Prand32()>>17) + 1024
	p.log.Info("socket:dialing", slog.String("addr", addr), slog.Uint64("localPort", uint64(localPort)))
	err = rstack.DoDialTCP(&conn.Conn, localPort, netip.AddrPortFrom(ip, port), 10*time.Second, 3)
	if err != nil {
		conn.Close()
		return nil, errors.New("tcp dial " + addr + ": " + err.Error())
	}
	p.log.Info("tcp:connected", slog.String("state", conn.State().String()))
	return conn, nil
}

// tcpConn adapts tcp.Conn to relay.Conn.
type tcpConn struct {
	tcp.Conn
}

func (c *tcpConn) SetDeadline(t time.Time) error {
	c.Conn.SetDeadline(t)
	return nil
}

// Close waits briefly for an orderly close, then aborts.
func (c *tcpConn) Close() error {
	c.Conn.Close()
	for i := 0; i < 50 && !c.State().IsClosed(); i++ {
		time.Sleep(100 * time.Millisecond)
	}
	c.Abort()
	return nil
}
