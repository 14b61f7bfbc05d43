package dexcom

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
)

// glucoseValue is one entry of ReadPublisherLatestGlucoseValues.
type glucoseValue struct {
	WT    shareTime  `json:"WT"`
	ST    shareTime  `json:"ST"`
	DT    string     `json:"DT"`
	Value int        `json:"Value"`
	Trend shareTrend `json:"Trend"`
}

func (v glucoseValue) reading() glucose.Reading {
	return glucose.Reading{
		Value: v.Value,
		Trend: glucose.Trend(v.Trend),
		Time:  time.Time(v.WT),
	}
}

// shareTrend accepts both the named ("Flat") and numeric (4) encodings.
type shareTrend glucose.Trend

func (t *shareTrend) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*t = shareTrend(glucose.TrendNotComputable)
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		*t = shareTrend(glucose.ParseTrend(unq))
		return nil
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("dexcom: invalid trend " + s)
	}
	*t = shareTrend(glucose.TrendFromCode(code))
	return nil
}

// shareTime is the "Date(1691455258000)" or "Date(1691455258000-0400)"
// timestamp format. The offset suffix is informational; the milliseconds are
// already UTC.
type shareTime time.Time

func (t *shareTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		if string(b) == "null" {
			*t = shareTime{}
			return nil
		}
		return errors.New("dexcom: invalid timestamp " + string(b))
	}
	ts, err := parseShareTime(s)
	if err != nil {
		return err
	}
	*t = shareTime(ts)
	return nil
}

func parseShareTime(s string) (time.Time, error) {
	const prefix = "Date("
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, ")") {
		return time.Time{}, errors.New("dexcom: invalid timestamp " + s)
	}
	inner := s[len(prefix) : len(s)-1]
	end := 0
	for end < len(inner) && inner[end] >= '0' && inner[end] <= '9' {
		end++
	}
	ms, err := strconv.ParseInt(inner[:end], 10, 64)
	if err != nil {
		return time.Time{}, errors.New("dexcom: invalid timestamp " + s)
	}
	return time.UnixMilli(ms).UTC(), nil
}
