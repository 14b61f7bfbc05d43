//go:build tinygo

// Package cyw43439 provisions WiFi on the Pico W: it joins the network whose
// credentials were linked into the firmware, runs DHCP and then keeps the
// lneto stack serviced so the relay can dial the broker.
//
// Device bring-up, DHCP and packet pumping follow the soypat/cyw43439
// examples: https://github.com/soypat/cyw43439/tree/main/examples/common
package cyw43439

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"runtime"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/x/xnet"

	"github.com/harveysanders/glucopanel/glucosemonitor/provision"
	"github.com/harveysanders/glucopanel/xslog"
)

const (
	mtu       = cyw43439.MTU
	joinDelay = 5 * time.Second
)

// Set with -ldflags "-X .../cyw43439.ssid=...".
var (
	ssid string
	pass string
)

type Config struct {
	SSID     string
	Password string
	// Hostname is used for DHCP requests.
	Hostname string
	// JoinTimeout bounds the join retries. Zero means 3 minutes.
	JoinTimeout time.Duration
	// RequestedAddr is the preferred DHCP address, used as a static address
	// if DHCP does not complete.
	RequestedAddr netip.Addr
	MaxTCPPorts   int
	Logger        *slog.Logger
}

// Provisioner implements provision.Service on the CYW43439. It never opens a
// portal.
type Provisioner struct {
	cfg     Config
	dev     *cyw43439.Device
	s       xnet.StackAsync
	sendbuf []byte
	log     *slog.Logger
}

var _ provision.Service = (*Provisioner)(nil)

func NewProvisioner(cfg Config) *Provisioner {
	if cfg.SSID == "" {
		cfg.SSID = ssid
		cfg.Password = pass
	}
	if cfg.Hostname == "" {
		cfg.Hostname = "glucopanel"
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 3 * time.Minute
	}
	if cfg.MaxTCPPorts < 1 {
		cfg.MaxTCPPorts = 1
	}
	return &Provisioner{
		cfg:     cfg,
		sendbuf: make([]byte, mtu),
		log:     xslog.OrDiscard(cfg.Logger),
	}
}

func (p *Provisioner) AutoConnect(ctx context.Context, _ func(name, addr string)) bool {
	if err := p.join(ctx); err != nil {
		p.log.Error("wifi:join-failed", xslog.Error(err))
		return false
	}
	// DHCP, DNS and TCP packets only move while the stack is serviced.
	go p.serviceLoop()
	if err := p.setupDHCP(); err != nil {
		p.log.Error("wifi:dhcp-failed", xslog.Error(err))
		return false
	}
	return true
}

func (p *Provisioner) join(ctx context.Context) error {
	if p.cfg.SSID == "" {
		return errors.New("no SSID linked into firmware")
	}

	start := time.Now()
	p.dev = cyw43439.NewPicoWDevice()
	p.dev.SetLogger(p.log)

	p.log.Info("initializing pico W device...")
	if err := p.dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return errors.New("wifi init failed:" + err.Error())
	}
	p.log.Info("cyw43439:Init", slog.Duration("duration", time.Since(start)))

	if len(p.cfg.Password) == 0 {
		p.log.Info("joining open network:", slog.String("ssid", p.cfg.SSID))
	} else {
		p.log.Info("joining WPA secure network", slog.String("ssid", p.cfg.SSID), slog.Int("passlen", len(p.cfg.Password)))
	}

	deadline := time.Now().Add(p.cfg.JoinTimeout)
	for attempt := 1; ; attempt++ {
		err := p.dev.JoinWPA2(p.cfg.SSID, p.cfg.Password)
		if err == nil {
			break
		}
		p.log.Error("wifi join failed", xslog.Attempt(attempt), xslog.Error(err))
		if time.Now().Add(joinDelay).After(deadline) {
			return errors.New("wifi join timed out:" + err.Error())
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(joinDelay)
	}

	mac, err := p.dev.HardwareAddr6()
	if err != nil {
		return errors.New("get hardware address:" + err.Error())
	}
	p.log.Info("wifi join success!", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	err = p.s.Reset(xnet.StackConfig{
		Hostname:        p.cfg.Hostname,
		MaxTCPConns:     p.cfg.MaxTCPPorts,
		RandSeed:        time.Since(start).Nanoseconds(),
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return errors.New("stack reset:" + err.Error())
	}
	p.dev.RecvEthHandle(func(pkt []byte) error {
		return p.s.Demux(pkt, 0)
	})
	return nil
}

func (p *Provisioner) setupDHCP() error {
	requested := p.cfg.RequestedAddr
	if !requested.IsValid() {
		requested = netip.AddrFrom4([4]byte{})
	} else if !requested.Is4() {
		return errors.New("only dhcpv4 supported")
	}

	const pollTime = 50 * time.Millisecond
	rstack := p.s.StackRetrying(pollTime)

	p.log.Info("DHCP:starting")
	results, err := rstack.DoDHCPv4(requested.As4(), 3*time.Second, 3)
	if err != nil {
		if !requested.IsUnspecified() {
			p.log.Info("DHCP did not complete, assigning static IP", slog.String("ip", requested.String()))
			p.s.SetIPAddr(requested)
			return nil
		}
		return errors.New("dhcp failed:" + err.Error())
	}
	if err := p.s.AssimilateDHCPResults(results); err != nil {
		return errors.New("assimilate dhcp:" + err.Error())
	}

	gatewayHW, err := rstack.DoResolveHardwareAddress6(results.Router, 500*time.Millisecond, 4)
	if err != nil {
		return errors.New("resolve gateway:" + err.Error())
	}
	p.s.SetGateway6(gatewayHW)

	p.log.Info("DHCP complete",
		slog.String("ourIP", results.AssignedAddr.String()),
		slog.String("gateway", results.Gateway.String()),
		slog.String("router", results.Router.String()),
		slog.Uint64("lease_sec", uint64(results.TLease)),
	)
	return nil
}

// serviceLoop pumps packets for the life of the firmware.
func (p *Provisioner) serviceLoop() {
	for {
		send, recv, _ := p.recvAndSend()
		if send == 0 && recv == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		runtime.Gosched()
	}
}

func (p *Provisioner) recvAndSend() (send, recv int, err error) {
	gotPacket, errRecv := p.dev.PollOne()
	if gotPacket {
		recv = 1
	}
	if errRecv != nil {
		p.log.Error("RecvAndSend:PollOne", xslog.Error(errRecv))
	}

	send, err = p.s.Encapsulate(p.sendbuf, -1, 0)
	if err != nil {
		p.log.Error("RecvAndSend:Encapsulate", slog.Int("plen", send), xslog.Error(err))
	} else {
		err = errRecv
	}
	if send == 0 {
		return send, recv, err
	}

	err = p.dev.SendEth(p.sendbuf[:send])
	if err != nil {
		p.log.Error("RecvAndSend:SendEth", slog.Int("plen", send), xslog.Error(err))
	}
	return send, recv, err
}

// Addr returns the current IP address of the stack.
func (p *Provisioner) Addr() netip.Addr {
	return p.s.Addr()
}
