package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memStore struct {
	mu    sync.Mutex
	creds *Credentials
	saved []Credentials
}

func (s *memStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return Credentials{}, ErrNoCredentials
	}
	return *s.creds, nil
}

func (s *memStore) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, c)
	s.creds = &c
	return nil
}

func (s *memStore) savedCreds() []Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Credentials(nil), s.saved...)
}

type recordingJoiner struct {
	mu    sync.Mutex
	good  string
	tried []string
}

func (j *recordingJoiner) Join(_ context.Context, c Credentials) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tried = append(j.tried, c.SSID)
	if c.SSID != j.good {
		return errors.New("association rejected")
	}
	return nil
}

func postConnect(h http.Handler, ssid, password string) *httptest.ResponseRecorder {
	form := url.Values{"ssid": {ssid}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAlreadyOnline(t *testing.T) {
	t.Parallel()

	j := &recordingJoiner{}
	p := New(&memStore{}, j, WithOnlineCheck(func(context.Context) bool { return true }))
	if !p.AutoConnect(context.Background(), func(string, string) { t.Error("portal opened while online") }) {
		t.Fatal("AutoConnect() = false while online")
	}
	if len(j.tried) != 0 {
		t.Errorf("joined %v while online", j.tried)
	}
}

func TestCachedCredentials(t *testing.T) {
	t.Parallel()

	store := &memStore{creds: &Credentials{SSID: "home", Password: "hunter22"}}
	p := New(store, &recordingJoiner{good: "home"})
	if !p.AutoConnect(context.Background(), func(string, string) { t.Error("portal opened with working cache") }) {
		t.Fatal("AutoConnect() = false with working cached credentials")
	}
}

func TestPortalTimesOut(t *testing.T) {
	t.Parallel()

	store := &memStore{creds: &Credentials{SSID: "moved-away"}}
	p := New(store, &recordingJoiner{good: "home"},
		WithAddr("127.0.0.1:0"),
		WithTimeout(20*time.Millisecond),
		withNameSuffix(func() uint16 { return 0x1a2b }),
	)

	var announced, addr string
	if p.AutoConnect(context.Background(), func(name, a string) { announced, addr = name, a }) {
		t.Fatal("AutoConnect() = true without a submission")
	}
	if announced != "GlucoPanel-1A2B" {
		t.Errorf("announced %q, want GlucoPanel-1A2B", announced)
	}
	if !strings.HasPrefix(addr, "127.0.0.1:") || addr == "127.0.0.1:0" {
		t.Errorf("announced address %q, want the bound 127.0.0.1 port", addr)
	}
}

func TestPortalCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := New(&memStore{}, &recordingJoiner{}, WithAddr("127.0.0.1:0"))
	if p.AutoConnect(ctx, func(string, string) { cancel() }) {
		t.Fatal("AutoConnect() = true after cancel")
	}
}

func TestPortalFormJoins(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	j := &recordingJoiner{good: "home"}
	p := New(store, j, WithAddr("127.0.0.1:0"), WithTimeout(time.Minute))

	started := make(chan string, 1)
	result := make(chan bool, 1)
	go func() {
		result <- p.AutoConnect(context.Background(), func(name, _ string) { started <- name })
	}()

	name := <-started
	if !regexp.MustCompile(`^GlucoPanel-[0-9A-F]{4}$`).MatchString(name) {
		t.Errorf("portal name %q does not match <prefix>-XXXX", name)
	}

	h := p.Handler()
	if w := postConnect(h, "", "x"); w.Code != http.StatusBadRequest {
		t.Errorf("empty ssid status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if w := postConnect(h, "neighbour", "guess"); w.Code != http.StatusBadGateway {
		t.Errorf("failed join status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if w := postConnect(h, "home", "hunter22"); w.Code != http.StatusOK {
		t.Errorf("good join status = %d, want %d", w.Code, http.StatusOK)
	}

	select {
	case ok := <-result:
		if !ok {
			t.Fatal("AutoConnect() = false after a good submission")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AutoConnect did not return after a good submission")
	}

	want := []Credentials{{SSID: "home", Password: "hunter22"}}
	if diff := cmp.Diff(want, store.savedCreds()); diff != "" {
		t.Errorf("saved credentials mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerRoutes(t *testing.T) {
	t.Parallel()

	h := New(&memStore{}, &recordingJoiner{}).Handler()
	tests := []struct {
		path     string
		code     int
		location string
		body     string
	}{
		{path: "/", code: http.StatusOK, body: `<form method="post" action="/connect">`},
		{path: "/generate_204", code: http.StatusFound, location: "/"},
		{path: "/hotspot-detect.html", code: http.StatusFound, location: "/"},
		{path: "/nope", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Errorf("GET %s status = %d, want %d", tt.path, w.Code, tt.code)
			}
			if got := w.Header().Get("Location"); got != tt.location {
				t.Errorf("GET %s Location = %q, want %q", tt.path, got, tt.location)
			}
			if tt.body == "" {
				return
			}
			if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
				t.Errorf("GET %s Content-Type = %q, want html", tt.path, got)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Errorf("GET %s body missing %q:\n%s", tt.path, tt.body, w.Body.String())
			}
		})
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := FileStore{Path: filepath.Join(t.TempDir(), "nested", "wifi.yaml")}
	if _, err := s.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Load() on missing file err = %v, want ErrNoCredentials", err)
	}
	want := Credentials{SSID: "home", Password: "p@ss: word"}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("credentials mismatch (-want +got):\n%s", diff)
	}
}

func TestNMCLIArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     NMCLI
		creds Credentials
		want  []string
	}{
		{
			name:  "open network",
			creds: Credentials{SSID: "cafe"},
			want:  []string{"device", "wifi", "connect", "cafe"},
		},
		{
			name:  "secured on interface",
			n:     NMCLI{Interface: "wlan0"},
			creds: Credentials{SSID: "home", Password: "hunter22"},
			want:  []string{"device", "wifi", "connect", "home", "password", "hunter22", "ifname", "wlan0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, tt.n.args(tt.creds)); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
