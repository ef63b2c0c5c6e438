package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/llm-task-extractor/internal/adapters/session"
	"github.com/mikey/llm-task-extractor/internal/adapters/taskstore"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

type stubAssembler struct {
	refs []time.Time
}

func (s *stubAssembler) AssembleBatch(_ context.Context, emails []core.RawEmail, ref time.Time) []core.Task {
	s.refs = append(s.refs, ref)
	tasks := make([]core.Task, 0, len(emails))
	for _, e := range emails {
		tasks = append(tasks, core.Task{
			EventType: "Email",
			Subject:   e.Subject,
			Deadline:  ref.Add(24 * time.Hour),
			Priority:  core.PriorityImportant,
		})
	}
	return tasks
}

type fakeOAuth struct {
	exchanged string
	failWith  error
}

func (f *fakeOAuth) AuthCodeURL(state string, _ ...oauth2.AuthCodeOption) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.exchanged = code
	return &oauth2.Token{AccessToken: "access-" + code}, nil
}

func (f *fakeOAuth) TokenSource(_ context.Context, t *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(t)
}

type fakeMailbox struct {
	emails []core.RawEmail
	err    error
}

func (m *fakeMailbox) ListRecent(_ context.Context, limit int) ([]core.RawEmail, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.emails) > limit {
		return m.emails[:limit], nil
	}
	return m.emails, nil
}

type fixture struct {
	srv      *HTTPServer
	sessions *session.MemoryStore
	tasks    *taskstore.MemoryStore
	oauth    *fakeOAuth
	box      *fakeMailbox
	service  *stubAssembler
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		sessions: session.NewMemoryStore(0),
		tasks:    taskstore.NewMemoryStore(100),
		oauth:    &fakeOAuth{},
		box: &fakeMailbox{emails: []core.RawEmail{
			{Subject: "Exam on Friday", Body: "bring a pencil"},
			{Subject: "Club meeting", Body: "room 4"},
		}},
		service: &stubAssembler{},
	}

	cfg := Config{
		Logger:   zap.NewNop(),
		Mode:     gin.TestMode,
		Service:  f.service,
		Sessions: f.sessions,
		Tasks:    f.tasks,
		OAuth:    f.oauth,
		Mailboxes: func(context.Context, oauth2.TokenSource) (core.Mailbox, error) {
			return f.box, nil
		},
		Location:   time.UTC,
		MaxResults: 10,
		Clock:      func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.srv = srv
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

// login runs the OAuth round trip and returns the session cookie
func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("login status = %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(loc.Query().Get("state")), nil)
	req.AddCookie(cookies[0])
	w = f.do(req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/tasks" {
		t.Fatalf("callback status = %d location = %q", w.Code, w.Header().Get("Location"))
	}
	return cookies[0]
}

func decodeTasks(t *testing.T, w *httptest.ResponseRecorder) []core.Task {
	t.Helper()
	var tasks []core.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return tasks
}

func TestNew_Validates(t *testing.T) {
	if _, err := New(Config{Logger: zap.NewNop()}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("tasks_total 3\n"))
		})
	})
	w := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tasks_total") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestLoginFlowAndFetchTasks(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.login(t)

	if f.oauth.exchanged != "abc" {
		t.Errorf("exchanged code = %q", f.oauth.exchanged)
	}

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(cookie)
	w := f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("/tasks status = %d body = %s", w.Code, w.Body.String())
	}
	tasks := decodeTasks(t, w)
	if len(tasks) != 2 || tasks[0].Subject != "Exam on Friday" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if len(f.service.refs) != 1 || !f.service.refs[0].Equal(fixedNow) {
		t.Errorf("reference instants = %v", f.service.refs)
	}

	req = httptest.NewRequest(http.MethodGet, "/tasks/latest", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	if w.Code != http.StatusOK || len(decodeTasks(t, w)) != 2 {
		t.Fatalf("/tasks/latest = %d %s", w.Code, w.Body.String())
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	cookie := w.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=forged", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if f.oauth.exchanged != "" {
		t.Error("code must not be exchanged on state mismatch")
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.oauth.failWith = errors.New("invalid_grant")

	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	cookie := w.Result().Cookies()[0]
	loc, _ := url.Parse(w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(loc.Query().Get("state")), nil)
	req.AddCookie(cookie)
	w = f.do(req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestTasks_Unauthorized(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	// a session that never completed the callback is not enough
	w = f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(w.Result().Cookies()[0])
	w = f.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestTasks_MailboxError(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.login(t)
	f.box.err = errors.New("quota exceeded")

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(cookie)
	w := f.do(req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestMailboxRoutesDisabledWithoutOAuth(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.OAuth = nil
		cfg.Mailboxes = nil
	})
	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestExtract(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.MaxBatchEmails = 2 })

	tests := []struct {
		name   string
		body   string
		status int
		count  int
	}{
		{"valid batch", `{"emails":[{"subject":"Quiz","body":"due tomorrow"}]}`, http.StatusOK, 1},
		{"malformed json", `{"emails":`, http.StatusBadRequest, 0},
		{"missing emails", `{}`, http.StatusBadRequest, 0},
		{"empty emails", `{"emails":[]}`, http.StatusBadRequest, 0},
		{"too many", `{"emails":[{"subject":"a"},{"subject":"b"},{"subject":"c"}]}`, http.StatusRequestEntityTooLarge, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/tasks/extract", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := f.do(req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusOK && len(decodeTasks(t, w)) != tt.count {
				t.Errorf("want %d tasks", tt.count)
			}
		})
	}
}

func TestExtract_RateLimited(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.ExtractPerMinute = 1 })

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/tasks/extract", strings.NewReader(`{"emails":[{"subject":"x","body":"y"}]}`))
		req.Header.Set("Content-Type", "application/json")
		return f.do(req).Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}
}

func TestExtract_ForwardedForIgnored(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.ExtractPerMinute = 1 })

	var codes []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/tasks/extract", strings.NewReader(`{"emails":[{"subject":"x","body":"y"}]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.RemoteAddr = "203.0.113.7:1234"
		codes = append(codes, f.do(req).Code)
	}

	want := []int{200, 429, 429, 429, 429}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("statuses = %v, want %v", codes, want)
	}
}

func TestExtract_TrustedProxyForwardedFor(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.ExtractPerMinute = 1
		cfg.TrustedProxies = []string{"203.0.113.0/24"}
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/tasks/extract", strings.NewReader(`{"emails":[{"subject":"x","body":"y"}]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.RemoteAddr = "203.0.113.7:1234"
		if code := f.do(req).Code; code != http.StatusOK {
			t.Errorf("client %d status = %d, want 200", i, code)
		}
	}
}

func TestNew_InvalidTrustedProxy(t *testing.T) {
	_, err := New(Config{
		Logger:         zap.NewNop(),
		Service:        &stubAssembler{},
		Sessions:       session.NewMemoryStore(0),
		Tasks:          taskstore.NewMemoryStore(10),
		TrustedProxies: []string{"not-an-ip"},
	})
	if err == nil {
		t.Fatal("expected an error for a malformed proxy address")
	}
}

func TestExtract_BodyTooLarge(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.MaxRequestBytes = 256 })

	body := `{"emails":[{"subject":"x","body":"` + strings.Repeat("a", 1024) + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/tasks/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if len(f.service.refs) != 0 {
		t.Error("oversized request must not reach the service")
	}
}

func TestClientLimiter_ConcurrentFirstUse(t *testing.T) {
	cl := newClientLimiter(60)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cl.allow("203.0.113.7") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	// one bucket of burst 6, plus at most one refill while the goroutines run
	if n := int(allowed.Load()); n > cl.burst+1 {
		t.Errorf("allowed %d requests, want at most %d", n, cl.burst+1)
	}
	if cl.limiters.Len() != 1 {
		t.Errorf("limiters = %d, want 1", cl.limiters.Len())
	}
}

func TestIntakeTasks(t *testing.T) {
	f := newFixture(t, nil)
	f.tasks.Append(core.SMTPIntakeOwner, core.Task{Subject: "Pushed", Priority: core.PriorityLater})

	w := f.do(httptest.NewRequest(http.MethodGet, "/intake/tasks", nil))
	tasks := decodeTasks(t, w)
	if w.Code != http.StatusOK || len(tasks) != 1 || tasks[0].Subject != "Pushed" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.ListenAddress = "127.0.0.1:0" })
	if err := f.srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + f.srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
