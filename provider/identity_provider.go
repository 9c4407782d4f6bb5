package provider

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/round-engine/config"
	"github.com/Digital-Creators-Team/round-engine/httpclient"
)

// IdentityProvider asks the compliance service whether a player may
// place wagers above the large-stake threshold. Implements the engine's
// IdentityProvider interface.
type IdentityProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewIdentityProvider creates a new identity provider
func NewIdentityProvider(cfg *config.Config, logger zerolog.Logger) *IdentityProvider {
	return &IdentityProvider{
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.ExternalServices.IdentityService.BaseURL,
			Timeout: cfg.ExternalServices.IdentityService.Timeout,
			Logger:  logger,
		}),
		logger: logger.With().Str("component", "identity_provider").Logger(),
	}
}

// Verify reports whether the player passed identity checks. Errors make
// the caller fail closed.
func (p *IdentityProvider) Verify(ctx context.Context, playerID string) (bool, error) {
	var result struct {
		Data struct {
			Allowed bool `json:"allowed"`
		} `json:"data"`
	}
	if err := p.client.GetJSON(ctx, "/identity/verify?player_id="+url.QueryEscape(playerID), &result); err != nil {
		return false, err
	}
	return result.Data.Allowed, nil
}
