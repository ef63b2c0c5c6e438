package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-task-extractor/internal/adapters/httpserver"
	"github.com/mikey/llm-task-extractor/internal/adapters/mailbox"
	"github.com/mikey/llm-task-extractor/internal/adapters/session"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// MailboxFactory creates mailboxes and the login state around them
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSenderFilter creates the ignored-sender checker from mailbox.ignored_domains
func (f *MailboxFactory) CreateSenderFilter() (*senderfilter.Checker, error) {
	pipeline, err := f.cfg.GetPipeline()
	if err != nil {
		return nil, err
	}
	if len(pipeline.IgnoredDomains) > 0 {
		f.logger.Info("Loaded ignored sender domains", zap.Strings("domains", pipeline.IgnoredDomains))
	}
	return senderfilter.NewChecker(pipeline.IgnoredDomains, f.logger.Named("senderfilter")), nil
}

// CreateOAuthConfig creates the Gmail OAuth client. It returns nil when no
// client is configured, which disables the mailbox routes.
func (f *MailboxFactory) CreateOAuthConfig() (*oauth2.Config, error) {
	oauthCfg := f.cfg.GetOAuth()
	if oauthCfg.CredentialsFile == "" && oauthCfg.ClientID == "" {
		f.logger.Warn("No OAuth client configured")
		return nil, nil
	}
	return mailbox.NewOAuthConfig(oauthCfg)
}

// GmailMailboxes returns a constructor for per-user Gmail mailboxes
func (f *MailboxFactory) GmailMailboxes(filter *senderfilter.Checker) httpserver.MailboxFactory {
	gmailCfg := f.cfg.GetGmail()
	logger := f.logger.Named("gmail")
	return func(ctx context.Context, ts oauth2.TokenSource) (core.Mailbox, error) {
		box, err := mailbox.NewGmailMailbox(ctx, ts, gmailCfg.Query, filter, logger)
		if err != nil {
			return nil, err
		}
		return box, nil
	}
}

// CreateDirMailbox creates a mailbox over the .eml files in dir
func (f *MailboxFactory) CreateDirMailbox(dir string, filter *senderfilter.Checker) core.Mailbox {
	return mailbox.NewDirMailbox(dir, filter, f.logger.Named("dir"))
}

// CreateSessionStore creates the store named by session.store
func (f *MailboxFactory) CreateSessionStore(ctx context.Context) (session.Store, error) {
	sessionCfg, err := f.cfg.GetSession()
	if err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}

	switch sessionCfg.Store {
	case "memory":
		return session.NewMemoryStore(sessionCfg.TTL), nil
	case "redis":
		rdb, err := session.NewRedisClient(ctx, sessionCfg.RedisAddr, sessionCfg.RedisPassword, sessionCfg.RedisDB)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Using redis session store", zap.String("addr", sessionCfg.RedisAddr))
		return session.NewRedisStore(rdb, sessionCfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", sessionCfg.Store)
	}
}
