// Package httpserver exposes the task pipeline over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/llm-task-extractor/internal/adapters/session"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultMaxRequestBytes is used when Config.MaxRequestBytes is unset
const DefaultMaxRequestBytes = 1 << 20

// TaskAssembler turns a batch of emails into tasks
type TaskAssembler interface {
	AssembleBatch(ctx context.Context, emails []core.RawEmail, reference time.Time) []core.Task
}

// OAuthProvider is the part of *oauth2.Config the login flow uses
type OAuthProvider interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

// MailboxFactory opens the mailbox a token grants access to
type MailboxFactory func(ctx context.Context, ts oauth2.TokenSource) (core.Mailbox, error)

// Config is the dependency bag passed to New
type Config struct {
	Logger         *zap.Logger
	ListenAddress  string
	Mode           string
	CookieSecure   bool
	Service        TaskAssembler
	Sessions       session.Store
	Tasks          core.TaskStore
	OAuth          OAuthProvider
	Mailboxes      MailboxFactory
	Metrics        http.Handler
	Location       *time.Location
	MaxResults     int
	MaxBatchEmails int

	// ExtractPerMinute limits POST /tasks/extract per client address; 0 disables the limit
	ExtractPerMinute int

	// MaxRequestBytes caps the body of POST /tasks/extract
	MaxRequestBytes int64

	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For is
	// believed. Empty means the client address is always the peer address.
	TrustedProxies []string

	// Clock supplies the reference instant; defaults to time.Now
	Clock func() time.Time
}

// HTTPServer serves the task API
type HTTPServer struct {
	cfg      Config
	l        *zap.Logger
	gin      *gin.Engine
	limiter  *clientLimiter
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates the server and registers its routes
func New(cfg Config) (*HTTPServer, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.MaxBatchEmails <= 0 {
		cfg.MaxBatchEmails = 50
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = DefaultMaxRequestBytes
	}

	srv := &HTTPServer{
		cfg: cfg,
		l:   cfg.Logger,
		gin: gin.New(),
	}
	if err := srv.gin.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	if cfg.ExtractPerMinute > 0 {
		srv.limiter = newClientLimiter(cfg.ExtractPerMinute)
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	srv.mapHandlers()
	return srv, nil
}

func (srv *HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.cfg.Service == nil {
		return errors.New("task service is required")
	}
	if srv.cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if srv.cfg.Tasks == nil {
		return errors.New("task store is required")
	}
	return nil
}

// Handler exposes the router, mainly for tests
func (srv *HTTPServer) Handler() http.Handler {
	return srv.gin
}

// Name identifies the front end
func (srv *HTTPServer) Name() string {
	return "http"
}

// Start listens on the configured address and serves in the background
func (srv *HTTPServer) Start() error {
	l, err := net.Listen("tcp", srv.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.cfg.ListenAddress, err)
	}
	srv.listener = l
	srv.server = &http.Server{
		Handler:           srv.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.l.Info("HTTP server starting", zap.String("address", l.Addr().String()))

	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		if err := srv.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.l.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (srv *HTTPServer) Addr() string {
	if srv.listener == nil {
		return ""
	}
	return srv.listener.Addr().String()
}

// Stop gracefully shuts the server down
func (srv *HTTPServer) Stop(ctx context.Context) error {
	if srv.server == nil {
		return nil
	}
	err := srv.server.Shutdown(ctx)
	srv.wg.Wait()
	return err
}

var _ ports.FrontEnd = (*HTTPServer)(nil)
