package factory

import (
	"fmt"
	"time"

	"github.com/mikey/llm-task-extractor/internal/adapters/httpserver"
	"github.com/mikey/llm-task-extractor/internal/adapters/intake"
	"github.com/mikey/llm-task-extractor/internal/adapters/session"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/metrics"
	"github.com/mikey/llm-task-extractor/internal/ports"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// FrontEndDeps are the shared components every front end is built from
type FrontEndDeps struct {
	Service   *core.TaskService
	Tasks     core.TaskStore
	Sessions  session.Store
	OAuth     *oauth2.Config
	Mailboxes httpserver.MailboxFactory
	Filter    *senderfilter.Checker
	Metrics   *metrics.Manager
}

// FrontEndFactory creates the configured front ends
type FrontEndFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFrontEndFactory creates a new front end factory
func NewFrontEndFactory(cfg *config.Config, logger *zap.Logger) *FrontEndFactory {
	return &FrontEndFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFrontEnds creates the HTTP server and, when enabled, the SMTP intake
func (f *FrontEndFactory) CreateFrontEnds(deps FrontEndDeps) ([]ports.FrontEnd, error) {
	pipeline, err := f.cfg.GetPipeline()
	if err != nil {
		return nil, err
	}
	extraction, err := f.cfg.GetExtraction()
	if err != nil {
		return nil, fmt.Errorf("invalid extraction configuration: %w", err)
	}
	serverCfg := f.cfg.GetServer()

	httpCfg := httpserver.Config{
		Logger:           f.logger.Named("http"),
		ListenAddress:    serverCfg.ListenAddress,
		Mode:             serverCfg.Mode,
		CookieSecure:     serverCfg.CookieSecure,
		Service:          deps.Service,
		Sessions:         deps.Sessions,
		Tasks:            deps.Tasks,
		Location:         pipeline.Location,
		MaxResults:       f.cfg.GetGmail().MaxResults,
		MaxBatchEmails:   serverCfg.MaxBatchEmails,
		ExtractPerMinute: extraction.RatePerMinute,
		MaxRequestBytes:  serverCfg.MaxRequestBytes,
		TrustedProxies:   serverCfg.TrustedProxies,
	}
	if deps.OAuth != nil {
		httpCfg.OAuth = deps.OAuth
		httpCfg.Mailboxes = deps.Mailboxes
	}
	if deps.Metrics != nil {
		httpCfg.Metrics = deps.Metrics.Handler()
	}

	httpServer, err := httpserver.New(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	frontEnds := []ports.FrontEnd{httpServer}

	smtpCfg := f.cfg.GetSMTPIntake()
	if smtpCfg.Enabled {
		extractionTimeout := extraction.Timeout
		if extractionTimeout <= 0 {
			extractionTimeout = time.Minute
		}
		frontEnds = append(frontEnds, intake.NewSMTPIntake(
			intake.Config{
				ListenAddress:   smtpCfg.ListenAddress,
				Domain:          smtpCfg.Domain,
				MaxMessageBytes: smtpCfg.MaxMessageBytes,
				ForwardAddress:  smtpCfg.ForwardAddress,
				Location:        pipeline.Location,
				ProcessTimeout:  2 * extractionTimeout,
			},
			deps.Service,
			deps.Tasks,
			deps.Filter,
			f.logger.Named("intake"),
		))
	}

	return frontEnds, nil
}
