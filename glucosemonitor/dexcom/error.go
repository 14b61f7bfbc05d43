package dexcom

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	go_json "github.com/goccy/go-json"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
)

// APIError is a non-2xx Share response. Code is the service's error code,
// e.g. "SessionIdNotFound".
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("dexcom api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dexcom api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

var (
	// ErrNoSession is returned by reads before a successful CreateSession.
	ErrNoSession = errors.New("dexcom: no session")
	// ErrAccountNotFound is returned when authentication yields the nil account ID.
	ErrAccountNotFound = errors.New("dexcom: account not found")
	// ErrSessionInvalid is returned when login yields the nil session ID.
	ErrSessionInvalid = errors.New("dexcom: session invalid")
)

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	var errResp struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	}
	if err := go_json.Unmarshal(body, &errResp); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	msg := errResp.Message
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       errResp.Code,
		Message:    msg,
	}
}

// StatusFromError maps a Share failure to the session status the panel
// reports. Errors that are not service responses are unknown.
func StatusFromError(err error) glucose.SessionStatus {
	switch {
	case err == nil:
		return glucose.StatusLoggedIn
	case errors.Is(err, ErrAccountNotFound):
		return glucose.StatusAccountNotFound
	case errors.Is(err, ErrSessionInvalid):
		return glucose.StatusSessionInvalid
	case errors.Is(err, ErrNoSession):
		return glucose.StatusSessionNotFound
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return glucose.StatusUnknown
	}
	switch apiErr.Code {
	case "SessionNotValid":
		return glucose.StatusSessionInvalid
	case "SessionIdNotFound":
		return glucose.StatusSessionNotFound
	case "AccountPasswordInvalid", "SSO_AuthenticatePasswordInvalid":
		return glucose.StatusPasswordInvalid
	case "SSO_AuthenticateMaxAttemptsExceeed", "SSO_AuthenticateMaxAttemptsExceeded":
		return glucose.StatusMaxAttemptsExceeded
	case "SSO_AuthenticateAccountNotFound", "AccountNotFound":
		return glucose.StatusAccountNotFound
	case "InvalidArgument":
		msg := strings.ToLower(apiErr.Message)
		switch {
		case strings.Contains(msg, "accountname"), strings.Contains(msg, "username"):
			return glucose.StatusUsernameEmpty
		case strings.Contains(msg, "password"):
			return glucose.StatusPasswordEmpty
		}
	}
	return glucose.StatusUnknown
}
