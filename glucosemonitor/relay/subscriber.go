package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/harveysanders/glucopanel/glucosemonitor/clock"
	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/xslog"
)

// Subscriber follows the relay topic. It stands in for the follower service
// on the panel and doubles as its time source.
type Subscriber struct {
	cfg Config
	now func() time.Time

	username, password string
	sess               *session
	payload            []byte
	// pubs counts PUBLISH packets handled, so drain can tell when the
	// connection has gone quiet.
	pubs int

	mu         sync.Mutex
	latest     Message
	receivedAt time.Time
	first      chan struct{}
	firstOnce  sync.Once
}

var (
	_ glucose.Service = (*Subscriber)(nil)
	_ clock.Syncer    = (*Subscriber)(nil)
)

func NewSubscriber(cfg Config) *Subscriber {
	cfg.setDefaults()
	return &Subscriber{
		cfg:     cfg,
		now:     time.Now,
		payload: make([]byte, 0, 256),
		first:   make(chan struct{}),
	}
}

// CreateSession connects to the broker with username and password,
// subscribes and waits for the first message. Its status is returned. A
// broker refusing the credentials reports a password-invalid status.
func (s *Subscriber) CreateSession(ctx context.Context, username, password string) (glucose.SessionStatus, error) {
	s.username, s.password = username, password
	if err := s.dial(ctx); err != nil {
		return connectStatus(err), err
	}

	deadline := s.now().Add(s.cfg.Timeout)
	for !s.received() {
		if err := ctx.Err(); err != nil {
			return glucose.StatusUnknown, err
		}
		if s.now().After(deadline) {
			return glucose.StatusUnknown, errors.New("relay: no message on " + s.cfg.Topic)
		}
		if err := s.handleNext(deadline); err != nil {
			return glucose.StatusUnknown, err
		}
	}
	m := s.message()
	s.cfg.Logger.Info("relay:session", slog.String("status", m.Status))
	return m.SessionStatus(), nil
}

// LatestGlucose handles every packet already waiting on the connection and
// returns the newest reading received. A dropped connection is redialled
// once within the same call.
func (s *Subscriber) LatestGlucose(ctx context.Context) (glucose.Reading, error) {
	var err error
	for range 2 {
		if s.sess == nil || !s.sess.client.IsConnected() {
			if err = s.dial(ctx); err != nil {
				return glucose.NoData(), err
			}
		}
		if err = s.drain(ctx); err == nil {
			break
		}
	}
	if err != nil {
		return glucose.NoData(), err
	}
	if !s.received() {
		return glucose.NoData(), errors.New("relay: no message on " + s.cfg.Topic)
	}
	m := s.message()
	if m.SessionStatus() != glucose.StatusLoggedIn {
		return glucose.NoData(), errors.New("relay: publisher status " + m.Status)
	}
	return m.Reading(), nil
}

// drain reads packets until one read brings nothing new or the timeout
// passes.
func (s *Subscriber) drain(ctx context.Context) error {
	deadline := s.now().Add(s.cfg.Timeout)
	for s.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		client := s.sess.client
		lastRx, pubs, suback := client.LastRx(), s.pubs, client.AwaitingSuback()
		if err := s.handleNext(deadline); err != nil {
			return err
		}
		quiet := s.pubs == pubs && client.AwaitingSuback() == suback && client.LastRx().Equal(lastRx)
		if quiet {
			return nil
		}
	}
	return nil
}

// Offset waits for the first message and returns the publisher's clock
// minus ours at the moment it arrived.
func (s *Subscriber) Offset(ctx context.Context, _ string) (time.Duration, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.first:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest.ServerTime.IsZero() {
		return 0, errors.New("relay: message without server time")
	}
	return s.latest.ServerTime.Sub(s.receivedAt), nil
}

func (s *Subscriber) dial(ctx context.Context) error {
	if s.sess != nil {
		s.sess.close(s.cfg.Logger, "redial")
		s.sess = nil
	}
	sess, err := connect(ctx, s.cfg, mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
		OnPub:   s.onPub,
	}, s.username, s.password)
	if err != nil {
		return err
	}

	vsub := mqtt.VariablesSubscribe{
		PacketIdentifier: 0x1,
		TopicFilters: []mqtt.SubscribeRequest{
			{TopicFilter: []byte(s.cfg.Topic), QoS: mqtt.QoS0},
		},
	}
	sess.conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	if err := sess.client.StartSubscribe(vsub); err != nil {
		sess.close(s.cfg.Logger, "subscribe failed")
		return errors.New("mqtt subscribe:" + err.Error())
	}
	s.cfg.Logger.Info("mqtt:subscribed", slog.String("topic", s.cfg.Topic))
	s.sess = sess
	return nil
}

func (s *Subscriber) handleNext(deadline time.Time) error {
	s.sess.conn.SetDeadline(deadline)
	if err := s.sess.client.HandleNext(); err != nil {
		s.cfg.Logger.Warn("mqtt:handle-next-failed", xslog.Error(err))
		return errors.New("mqtt read:" + err.Error())
	}
	return nil
}

func (s *Subscriber) onPub(_ mqtt.Header, vp mqtt.VariablesPublish, r io.Reader) error {
	var buf [128]byte
	s.pubs++
	s.payload = s.payload[:0]
	for {
		n, err := r.Read(buf[:])
		s.payload = append(s.payload, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	m, err := Decode(s.payload)
	if err != nil {
		s.cfg.Logger.Error("relay:bad-message", slog.String("topic", string(vp.TopicName)), xslog.Error(err))
		return nil
	}
	s.accept(m, s.now())
	return nil
}

func (s *Subscriber) accept(m Message, at time.Time) {
	s.mu.Lock()
	s.latest = m
	s.receivedAt = at
	s.mu.Unlock()
	s.firstOnce.Do(func() { close(s.first) })
}

func (s *Subscriber) received() bool {
	select {
	case <-s.first:
		return true
	default:
		return false
	}
}

func (s *Subscriber) message() Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
