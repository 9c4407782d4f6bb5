package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/round-engine/config"
	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/httpclient"
	"github.com/Digital-Creators-Team/round-engine/ledger"
)

// WalletProvider implements ledger.Ledger against the platform's wallet
// service. Used when balances live outside this process; the wallet
// service owns atomicity, this adapter only maps the wire contract.
type WalletProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewWalletProvider creates a new wallet provider
func NewWalletProvider(cfg *config.Config, logger zerolog.Logger) *WalletProvider {
	return &WalletProvider{
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.ExternalServices.WalletService.BaseURL,
			Timeout: cfg.ExternalServices.WalletService.Timeout,
			Logger:  logger,
		}),
		logger: logger.With().Str("component", "wallet_provider").Logger(),
	}
}

func (p *WalletProvider) post(ctx context.Context, path, playerID string, amount decimal.Decimal) error {
	resp, err := p.client.Post(ctx, path, map[string]interface{}{
		"player_id": playerID,
		"amount":    amount.String(),
	})
	if err != nil {
		return fmt.Errorf("wallet request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusPaymentRequired, http.StatusConflict:
		return apperrors.InsufficientFunds(playerID)
	case http.StatusNotFound:
		return apperrors.NewWithDebug(apperrors.ErrUnknownPlayer, "unknown player", playerID)
	default:
		return fmt.Errorf("wallet service returned status %d", resp.StatusCode)
	}
}

// Reserve atomically checks and debits the stake on the wallet service
func (p *WalletProvider) Reserve(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return p.post(ctx, "/wallet/reserve", playerID, amount)
}

// Credit adds winnings to the player's wallet
func (p *WalletProvider) Credit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return p.post(ctx, "/wallet/credit", playerID, amount)
}

// Release returns a previously reserved stake
func (p *WalletProvider) Release(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return p.post(ctx, "/wallet/release", playerID, amount)
}

// Balance reads the current balance and version from the wallet service
func (p *WalletProvider) Balance(ctx context.Context, playerID string) (decimal.Decimal, uint64, error) {
	resp, err := p.client.Get(ctx, "/wallet/balance?player_id="+url.QueryEscape(playerID))
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to get balance: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, 0, apperrors.NewWithDebug(apperrors.ErrUnknownPlayer, "unknown player", playerID)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, 0, fmt.Errorf("wallet service returned status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Balance string `json:"balance"`
			Version uint64 `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	balance, err := decimal.NewFromString(result.Data.Balance)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to parse balance: %w", err)
	}
	return balance, result.Data.Version, nil
}

var _ ledger.Ledger = (*WalletProvider)(nil)
