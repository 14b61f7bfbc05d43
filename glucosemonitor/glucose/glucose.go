// Package glucose models continuous glucose monitor readings and the session
// with the remote follower service that serves them.
package glucose

import (
	"strconv"
	"time"
)

// NoValue is the Reading value meaning no reading is currently available.
const NoValue = -1

// Reading is the latest sensor value in mg/dL and its trend.
type Reading struct {
	Value int
	Trend Trend
	// Time is the sensor timestamp, zero when the service did not send one.
	Time time.Time
}

// NoData is the reading returned when nothing is available. It is a normal
// outcome, not an error.
func NoData() Reading {
	return Reading{Value: NoValue, Trend: TrendNotComputable}
}

// Available reports whether r carries a value.
func (r Reading) Available() bool { return r.Value != NoValue }

// Text renders the value as shown on the panel, e.g. "142 mg/dL".
func (r Reading) Text() string {
	if !r.Available() {
		return "--- mg/dL"
	}
	return strconv.Itoa(r.Value) + " mg/dL"
}

// Range buckets a value against the usual 70-180 mg/dL target.
type Range uint8

const (
	InRange Range = iota
	Low
	High
)

const (
	lowLimit  = 70
	highLimit = 180
)

func (r Reading) Range() Range {
	switch {
	case r.Value < lowLimit:
		return Low
	case r.Value > highLimit:
		return High
	default:
		return InRange
	}
}

// Trend is the direction and rate of change of the glucose value.
type Trend uint8

const (
	TrendNotComputable Trend = iota
	TrendRisingFast
	TrendRising
	TrendSlightlyRising
	TrendSteady
	TrendSlightlyFalling
	TrendFalling
	TrendFallingFast
	numTrends
)

var trendTexts = [numTrends]string{
	TrendNotComputable:   "Not computable",
	TrendRisingFast:      "Rising fast",
	TrendRising:          "Rising",
	TrendSlightlyRising:  "Slightly rising",
	TrendSteady:          "Steady :)",
	TrendSlightlyFalling: "Slightly falling",
	TrendFalling:         "Falling",
	TrendFallingFast:     "Falling fast",
}

var trendNames = [numTrends]string{
	TrendNotComputable:   "NotComputable",
	TrendRisingFast:      "DoubleUp",
	TrendRising:          "SingleUp",
	TrendSlightlyRising:  "FortyFiveUp",
	TrendSteady:          "Flat",
	TrendSlightlyFalling: "FortyFiveDown",
	TrendFalling:         "SingleDown",
	TrendFallingFast:     "DoubleDown",
}

// Text is the human readable trend shown under the value.
func (t Trend) Text() string {
	if t >= numTrends {
		t = TrendNotComputable
	}
	return trendTexts[t]
}

// String returns the follower service's name for t.
func (t Trend) String() string {
	if t >= numTrends {
		t = TrendNotComputable
	}
	return trendNames[t]
}

// ParseTrend maps a follower service trend name to a Trend. Unknown names,
// "None" and "RateOutOfRange" are not computable.
func ParseTrend(name string) Trend {
	for i, n := range trendNames {
		if n == name {
			return Trend(i)
		}
	}
	return TrendNotComputable
}

// TrendFromCode maps the numeric trend codes of older service versions
// (0 none, 1 DoubleUp ... 7 DoubleDown, 8 not computable, 9 out of range).
func TrendFromCode(code int) Trend {
	if code >= 1 && code <= 7 {
		return Trend(code)
	}
	return TrendNotComputable
}

// SessionStatus is the outcome of the last login attempt.
type SessionStatus uint8

const (
	StatusUnknown SessionStatus = iota
	StatusLoggedIn
	StatusSessionInvalid
	StatusSessionNotFound
	StatusAccountNotFound
	StatusPasswordInvalid
	StatusMaxAttemptsExceeded
	StatusUsernameEmpty
	StatusPasswordEmpty
	numStatuses
)

var statusMessages = [numStatuses]string{
	StatusUnknown:             "Unknown error",
	StatusLoggedIn:            "Logged in",
	StatusSessionInvalid:      "Session invalid",
	StatusSessionNotFound:     "Session not found",
	StatusAccountNotFound:     "Account not found",
	StatusPasswordInvalid:     "Password invalid",
	StatusMaxAttemptsExceeded: "Max attempts exceeded",
	StatusUsernameEmpty:       "Username empty",
	StatusPasswordEmpty:       "Password empty",
}

var statusNames = [numStatuses]string{
	StatusUnknown:             "unknown",
	StatusLoggedIn:            "logged-in",
	StatusSessionInvalid:      "session-invalid",
	StatusSessionNotFound:     "session-not-found",
	StatusAccountNotFound:     "account-not-found",
	StatusPasswordInvalid:     "password-invalid",
	StatusMaxAttemptsExceeded: "max-attempts-exceeded",
	StatusUsernameEmpty:       "username-empty",
	StatusPasswordEmpty:       "password-empty",
}

// Message is the status line shown on the panel.
func (s SessionStatus) Message() string {
	if s >= numStatuses {
		s = StatusUnknown
	}
	return statusMessages[s]
}

func (s SessionStatus) String() string {
	if s >= numStatuses {
		s = StatusUnknown
	}
	return statusNames[s]
}

// ParseStatus is the inverse of String; unrecognized names are unknown.
func ParseStatus(name string) SessionStatus {
	for i, n := range statusNames {
		if n == name {
			return SessionStatus(i)
		}
	}
	return StatusUnknown
}
