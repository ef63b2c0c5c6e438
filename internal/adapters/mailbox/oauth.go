package mailbox

import (
	"errors"
	"fmt"
	"os"

	"github.com/mikey/llm-task-extractor/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// NewOAuthConfig builds the Gmail read-only OAuth client. A credentials
// file downloaded from the Google console takes precedence over the
// individual client settings.
func NewOAuthConfig(cfg config.OAuthConfig) (*oauth2.Config, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		oauthCfg, err := google.ConfigFromJSON(data, gmail.GmailReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unsupported credentials format: %w", err)
		}
		if cfg.RedirectURL != "" {
			oauthCfg.RedirectURL = cfg.RedirectURL
		}
		return oauthCfg, nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("oauth client id and secret are required")
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}, nil
}
