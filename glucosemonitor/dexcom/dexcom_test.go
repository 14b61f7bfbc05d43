package dexcom

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
)

const (
	testAccountID = "6c1a6d80-3c8a-4e5c-9e29-4b7b9a1f0c11"
	testSessionID = "b7e3f1a2-0d4c-4a8e-8f51-2c9d7e6a5b30"
	nilID         = "00000000-0000-0000-0000-000000000000"
)

type fakeShare struct {
	accountID string
	sessionID string
	authErr   string // Share error code returned by authenticate
	latest    string // raw JSON body for the latest-values read

	mu         sync.Mutex
	gotSession string
}

func (f *fakeShare) session() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotSession
}

func (f *fakeShare) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/General/AuthenticatePublisherAccount", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("authenticate method = %s", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q", got)
		}
		var body map[string]string
		b, _ := io.ReadAll(r.Body)
		if err := go_json.Unmarshal(b, &body); err != nil {
			t.Errorf("decoding authenticate body: %v", err)
		}
		if body["accountName"] != "user" || body["password"] != "pass" || body["applicationId"] == "" {
			t.Errorf("authenticate body = %v", body)
		}
		if f.authErr != "" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"Code":"` + f.authErr + `","Message":"rejected"}`))
			return
		}
		_, _ = w.Write([]byte(`"` + f.accountID + `"`))
	})
	mux.HandleFunc("/General/LoginPublisherAccountById", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		b, _ := io.ReadAll(r.Body)
		_ = go_json.Unmarshal(b, &body)
		if body["accountId"] != f.accountID {
			t.Errorf("login accountId = %q, want %q", body["accountId"], f.accountID)
		}
		_, _ = w.Write([]byte(`"` + f.sessionID + `"`))
	})
	mux.HandleFunc("/Publisher/ReadPublisherLatestGlucoseValues", func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("sessionId")
		f.mu.Lock()
		f.gotSession = got
		f.mu.Unlock()
		if r.URL.Query().Get("maxCount") != "1" {
			t.Errorf("maxCount = %q", r.URL.Query().Get("maxCount"))
		}
		if got != f.sessionID {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"Code":"SessionIdNotFound","Message":"no such session"}`))
			return
		}
		_, _ = w.Write([]byte(f.latest))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeShare) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestSessionAndLatest(t *testing.T) {
	t.Parallel()

	f := &fakeShare{
		accountID: testAccountID,
		sessionID: testSessionID,
		latest:    `[{"WT":"Date(1691455258000)","ST":"Date(1691455258000)","DT":"Date(1691455258000-0400)","Value":142,"Trend":"Flat"}]`,
	}
	c := newTestClient(t, f)
	ctx := context.Background()

	if _, err := c.LatestGlucose(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("LatestGlucose before login error = %v, want ErrNoSession", err)
	}

	status, err := c.CreateSession(ctx, "user", "pass")
	if err != nil || status != glucose.StatusLoggedIn {
		t.Fatalf("CreateSession() = %v, %v", status, err)
	}

	got, err := c.LatestGlucose(ctx)
	if err != nil {
		t.Fatalf("LatestGlucose: %v", err)
	}
	want := glucose.Reading{Value: 142, Trend: glucose.TrendSteady, Time: time.UnixMilli(1691455258000).UTC()}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LatestGlucose() mismatch (-want +got):\n%s", diff)
	}
	if got := f.session(); got != testSessionID {
		t.Fatalf("read used session %q", got)
	}
}

func TestLatestEmptyIsNoData(t *testing.T) {
	t.Parallel()

	f := &fakeShare{accountID: testAccountID, sessionID: testSessionID, latest: `[]`}
	c := newTestClient(t, f)
	if _, err := c.CreateSession(context.Background(), "user", "pass"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := c.LatestGlucose(context.Background())
	if err != nil {
		t.Fatalf("LatestGlucose: %v", err)
	}
	if got.Available() {
		t.Fatalf("LatestGlucose() = %+v, want no data", got)
	}
}

func TestNumericTrend(t *testing.T) {
	t.Parallel()

	f := &fakeShare{accountID: testAccountID, sessionID: testSessionID, latest: `[{"WT":"Date(1691455258000)","Value":60,"Trend":7}]`}
	c := newTestClient(t, f)
	if _, err := c.CreateSession(context.Background(), "user", "pass"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := c.LatestGlucose(context.Background())
	if err != nil {
		t.Fatalf("LatestGlucose: %v", err)
	}
	if got.Trend != glucose.TrendFallingFast {
		t.Fatalf("trend = %v, want falling fast", got.Trend)
	}
}

func TestCreateSessionFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		f    *fakeShare
		want glucose.SessionStatus
	}{
		{name: "password invalid", f: &fakeShare{authErr: "AccountPasswordInvalid"}, want: glucose.StatusPasswordInvalid},
		{name: "max attempts", f: &fakeShare{authErr: "SSO_AuthenticateMaxAttemptsExceeed"}, want: glucose.StatusMaxAttemptsExceeded},
		{name: "unknown code", f: &fakeShare{authErr: "SSO_InternalError"}, want: glucose.StatusUnknown},
		{name: "nil account", f: &fakeShare{accountID: nilID, sessionID: testSessionID}, want: glucose.StatusAccountNotFound},
		{name: "nil session", f: &fakeShare{accountID: testAccountID, sessionID: nilID}, want: glucose.StatusSessionInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, tt.f)
			got, err := c.CreateSession(context.Background(), "user", "pass")
			if err == nil {
				t.Fatal("CreateSession() error = nil")
			}
			if got != tt.want {
				t.Fatalf("CreateSession() status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want glucose.SessionStatus
	}{
		{name: "nil", err: nil, want: glucose.StatusLoggedIn},
		{name: "session not valid", err: &APIError{Code: "SessionNotValid"}, want: glucose.StatusSessionInvalid},
		{name: "session id not found", err: &APIError{Code: "SessionIdNotFound"}, want: glucose.StatusSessionNotFound},
		{name: "account not found", err: &APIError{Code: "SSO_AuthenticateAccountNotFound"}, want: glucose.StatusAccountNotFound},
		{name: "empty account name", err: &APIError{Code: "InvalidArgument", Message: "accountName is required"}, want: glucose.StatusUsernameEmpty},
		{name: "empty password", err: &APIError{Code: "InvalidArgument", Message: "Password must be given"}, want: glucose.StatusPasswordEmpty},
		{name: "wrapped", err: errors.Join(errors.New("ctx"), &APIError{Code: "SSO_AuthenticatePasswordInvalid"}), want: glucose.StatusPasswordInvalid},
		{name: "transport", err: errors.New("dial tcp: refused"), want: glucose.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := StatusFromError(tt.err); got != tt.want {
				t.Fatalf("StatusFromError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseShareTime(t *testing.T) {
	t.Parallel()

	got, err := parseShareTime("Date(1691455258000-0400)")
	if err != nil {
		t.Fatalf("parseShareTime: %v", err)
	}
	if !got.Equal(time.UnixMilli(1691455258000)) {
		t.Fatalf("parseShareTime() = %v", got)
	}
	if _, err := parseShareTime("1691455258000"); err == nil {
		t.Fatal("parseShareTime without Date() wrapper succeeded")
	}
}

func TestParseRegion(t *testing.T) {
	t.Parallel()

	if r, err := ParseRegion("ous"); err != nil || r != RegionOUS {
		t.Fatalf("ParseRegion(ous) = %q, %v", r, err)
	}
	if _, err := ParseRegion("eu"); err == nil {
		t.Fatal("ParseRegion(eu) succeeded")
	}
}

func TestWithTimeoutBoundsRequests(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	if _, err := c.CreateSession(context.Background(), "user", "pass"); err == nil {
		t.Fatal("CreateSession succeeded against a stalled server")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("CreateSession took %v, want it cut off near 50ms", elapsed)
	}
}
