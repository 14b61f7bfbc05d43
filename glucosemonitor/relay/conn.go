package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/xslog"
)

// Conn is a broker connection that honours deadlines.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// DefaultPort is the MQTT port assumed for a broker address without one.
const DefaultPort = 1883

// SplitAddr splits a broker address, "host" or "host:port", into its host
// and port. Bracket IPv6 literals: "[fd00::9]:1883".
func SplitAddr(addr string) (host string, port uint16, err error) {
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, errors.New("relay address: " + err.Error())
	}
	if host == "" {
		return "", 0, errors.New("relay address " + addr + ": empty host")
	}
	p, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || p == 0 {
		return "", 0, errors.New("relay address " + addr + ": bad port " + portStr)
	}
	return host, uint16(p), nil
}

// DialFunc opens a new broker connection.
type DialFunc func(ctx context.Context) (Conn, error)

// Config is shared by Publisher and Subscriber.
type Config struct {
	Dial     DialFunc
	Topic    string
	ClientID string
	// Timeout bounds each broker exchange.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (cfg *Config) setDefaults() {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "glucopanel"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.Logger = xslog.OrDiscard(cfg.Logger)
}

// session is one MQTT client over one connection.
type session struct {
	client *mqtt.Client
	conn   Conn
}

// connect dials and completes the MQTT handshake.
func connect(ctx context.Context, cfg Config, clientCfg mqtt.ClientConfig, username, password string) (*session, error) {
	if cfg.Dial == nil {
		return nil, errors.New("relay: no dialer")
	}
	conn, err := cfg.Dial(ctx)
	if err != nil {
		return nil, errors.New("relay dial:" + err.Error())
	}

	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(cfg.ClientID))
	// No keepalive: the subscriber only listens between publishes.
	varconn.KeepAlive = 0
	if username != "" {
		varconn.Username = []byte(username)
		if password != "" {
			varconn.Password = []byte(password)
		}
	}

	client := mqtt.NewClient(clientCfg)
	conn.SetDeadline(time.Now().Add(cfg.Timeout))
	cfg.Logger.Info("mqtt:start-connecting", slog.String("client", cfg.ClientID))
	if err := client.StartConnect(conn, &varconn); err != nil {
		conn.Close()
		return nil, errors.New("mqtt start connect:" + err.Error())
	}
	retries := 50
	for retries > 0 && !client.IsConnected() {
		if err := ctx.Err(); err != nil {
			conn.Close()
			return nil, err
		}
		time.Sleep(100 * time.Millisecond)
		if err := client.HandleNext(); err != nil {
			cfg.Logger.Error("mqtt:handle-next-failed", xslog.Error(err))
			var refused mqtt.ConnectReturnCode
			if errors.As(err, &refused) {
				break
			}
		}
		retries--
	}
	if !client.IsConnected() {
		conn.Close()
		if err := client.Err(); err != nil {
			return nil, &ConnectError{Err: err}
		}
		return nil, errors.New("mqtt connect: timed out")
	}
	cfg.Logger.Info("mqtt:connected")
	return &session{client: client, conn: conn}, nil
}

func (s *session) close(logger *slog.Logger, reason string) {
	logger.Warn("mqtt:closing", slog.String("reason", reason))
	s.conn.Close()
}

// ConnectError is returned when the broker does not accept the connection.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "mqtt connect:" + e.Err.Error() }

func (e *ConnectError) Unwrap() error { return e.Err }

// connectStatus maps a broker refusal onto the login status it stands for.
func connectStatus(err error) glucose.SessionStatus {
	var refused mqtt.ConnectReturnCode
	if !errors.As(err, &refused) {
		return glucose.StatusUnknown
	}
	switch refused {
	case mqtt.ReturnCodeBadUserCredentials, mqtt.ReturnCodeUnauthorized:
		return glucose.StatusPasswordInvalid
	case mqtt.ReturnCodeIdentifierRejected:
		return glucose.StatusAccountNotFound
	default:
		return glucose.StatusUnknown
	}
}
