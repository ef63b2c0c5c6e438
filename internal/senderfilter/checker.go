// Package senderfilter decides which senders the mailboxes skip.
package senderfilter

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender addresses against a list of ignored domains
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new checker. Domains are matched case-insensitively,
// and a listed domain also covers its subdomains.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		d = strings.TrimPrefix(d, "@")
		if d != "" {
			normalizedDomains = append(normalizedDomains, d)
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if len(normalizedDomains) > 0 {
		logger.Info("Initialized sender filter", zap.Strings("ignored_domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsIgnored reports whether from (a bare address or "Name <addr>") belongs
// to an ignored domain
func (c *Checker) IsIgnored(from string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	domain := senderDomain(from)
	if domain == "" {
		return false
	}

	for _, ignored := range c.domains {
		if domain == ignored || strings.HasSuffix(domain, "."+ignored) {
			c.logger.Debug("Sender domain is ignored",
				zap.String("domain", domain),
				zap.String("from", from))
			return true
		}
	}

	return false
}

func senderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(addr[at+1:], ">"))
}
