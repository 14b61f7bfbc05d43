package dexcom

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/xslog"
)

const (
	pathAuthenticate = "/General/AuthenticatePublisherAccount"
	pathLoginByID    = "/General/LoginPublisherAccountById"
	pathLatest       = "/Publisher/ReadPublisherLatestGlucoseValues"

	// readings older than a day are not worth showing
	latestWindowMinutes = 1440
)

var _ glucose.Service = (*Client)(nil)

// CreateSession authenticates the account, then logs in by account ID and
// keeps the session ID for later reads.
func (c *Client) CreateSession(ctx context.Context, username, password string) (glucose.SessionStatus, error) {
	c.setSession("")

	var accountID string
	err := c.do(ctx, pathAuthenticate, nil, map[string]string{
		"accountName":   username,
		"password":      password,
		"applicationId": c.applicationID,
	}, &accountID)
	if err != nil {
		return StatusFromError(err), fmt.Errorf("authenticating account: %w", err)
	}
	if err := checkID(accountID, ErrAccountNotFound); err != nil {
		return StatusFromError(err), err
	}

	var sessionID string
	err = c.do(ctx, pathLoginByID, nil, map[string]string{
		"accountId":     accountID,
		"password":      password,
		"applicationId": c.applicationID,
	}, &sessionID)
	if err != nil {
		return StatusFromError(err), fmt.Errorf("logging in: %w", err)
	}
	if err := checkID(sessionID, ErrSessionInvalid); err != nil {
		return StatusFromError(err), err
	}

	c.setSession(sessionID)
	c.logger.Info("dexcom:session-created")
	return glucose.StatusLoggedIn, nil
}

// LatestGlucose reads the newest value of the last day. An empty result is
// the no-data reading.
func (c *Client) LatestGlucose(ctx context.Context) (glucose.Reading, error) {
	sessionID := c.session()
	if sessionID == "" {
		return glucose.NoData(), ErrNoSession
	}

	query := url.Values{}
	query.Set("sessionId", sessionID)
	query.Set("minutes", strconv.Itoa(latestWindowMinutes))
	query.Set("maxCount", "1")

	var values []glucoseValue
	if err := c.do(ctx, pathLatest, query, nil, &values); err != nil {
		return glucose.NoData(), fmt.Errorf("reading latest glucose: %w", err)
	}
	if len(values) == 0 {
		return glucose.NoData(), nil
	}

	r := values[0].reading()
	c.logger.Debug("dexcom:latest", xslog.Value(r.Value), slog.Time("time", r.Time))
	return r, nil
}

// checkID rejects malformed IDs and the nil UUID the service answers with
// when it accepts a request but has nothing to identify.
func checkID(id string, nilErr error) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("dexcom: malformed id %q: %w", id, err)
	}
	if parsed == uuid.Nil {
		return nilErr
	}
	return nil
}
