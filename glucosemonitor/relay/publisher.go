package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/xslog"
)

var retainFlags, _ = mqtt.NewPublishFlags(mqtt.QoS0, false, true)

// Publisher sends retained messages, reconnecting on the next publish after
// a failure.
type Publisher struct {
	cfg                Config
	username, password string
	now                func() time.Time

	mu       sync.Mutex
	sess     *session
	packetID uint16
}

func NewPublisher(cfg Config, username, password string) *Publisher {
	cfg.setDefaults()
	return &Publisher{cfg: cfg, username: username, password: password, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, m Message) error {
	payload, err := m.Encode()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil || !p.sess.client.IsConnected() {
		if p.sess != nil {
			p.sess.close(p.cfg.Logger, "stale session")
		}
		p.sess, err = connect(ctx, p.cfg, mqtt.ClientConfig{
			Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
			OnPub: func(mqtt.Header, mqtt.VariablesPublish, io.Reader) error {
				return nil
			},
		}, p.username, p.password)
		if err != nil {
			p.sess = nil
			return err
		}
	}

	p.packetID++
	if p.packetID == 0 {
		p.packetID = 1
	}
	vp := mqtt.VariablesPublish{
		TopicName:        []byte(p.cfg.Topic),
		PacketIdentifier: p.packetID,
	}
	p.sess.conn.SetDeadline(time.Now().Add(p.cfg.Timeout))
	if err := p.sess.client.PublishPayload(retainFlags, vp, payload); err != nil {
		p.sess.close(p.cfg.Logger, "publish failed")
		p.sess = nil
		return errors.New("mqtt publish:" + err.Error())
	}
	p.cfg.Logger.Debug("mqtt:published", slog.String("topic", p.cfg.Topic), slog.String("status", m.Status), xslog.Value(m.Value))
	return nil
}

// PublishReading mirrors a reading shown on the panel.
func (p *Publisher) PublishReading(ctx context.Context, r glucose.Reading) error {
	return p.Publish(ctx, NewMessage(glucose.StatusLoggedIn, r, p.now()))
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil {
		p.sess.close(p.cfg.Logger, "publisher closed")
		p.sess = nil
	}
}
