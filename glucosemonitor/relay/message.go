// Package relay carries glucose readings over MQTT from a host that can
// reach the follower service to a panel that cannot.
package relay

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
)

const DefaultTopic = "glucopanel/latest"

// Message is the retained JSON payload published on the topic.
type Message struct {
	Status      string    `json:"status"`
	Value       int       `json:"value"`
	Trend       string    `json:"trend"`
	ReadingTime time.Time `json:"readingTime"`
	// ServerTime is the publisher's wall clock at publish time.
	ServerTime time.Time `json:"serverTime"`
}

// NewMessage describes the session status and, when logged in, the reading.
func NewMessage(status glucose.SessionStatus, r glucose.Reading, now time.Time) Message {
	if status != glucose.StatusLoggedIn {
		r = glucose.NoData()
	}
	return Message{
		Status:      status.String(),
		Value:       r.Value,
		Trend:       r.Trend.String(),
		ReadingTime: r.Time,
		ServerTime:  now,
	}
}

func (m Message) SessionStatus() glucose.SessionStatus {
	return glucose.ParseStatus(m.Status)
}

func (m Message) Reading() glucose.Reading {
	if m.Value < 0 {
		return glucose.NoData()
	}
	return glucose.Reading{
		Value: m.Value,
		Trend: glucose.ParseTrend(m.Trend),
		Time:  m.ReadingTime,
	}
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Decode(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, errors.New("relay decode:" + err.Error())
	}
	return m, nil
}
