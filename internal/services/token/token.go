// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues, validates and consumes the single-use verification
// tokens that gate lifecycle transitions. Token state lives in the shared
// store, never in process memory, so any instance can serve any token.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/config"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/repository"
)

// TokenLength is the number of random bytes in a token value.
const TokenLength = 32

// Token failure classes. All leave the store untouched and are safe to retry
// with a fresh token.
var (
	ErrInvalid      = errors.New("token invalid")
	ErrExpired      = errors.New("token expired")
	ErrAlreadyUsed  = errors.New("token already used")
	ErrTypeMismatch = errors.New("token type mismatch")
)

// Subject identifies who a token is addressed to.
type Subject struct {
	UserID          *uuid.UUID // installer or inspector
	CustomerContact string     // email or phone for activation tokens
}

// Issued is the result of issuing a token. Plaintext leaves the process only
// inside the verification link; the store keeps the hash.
type Issued struct {
	Plaintext string
	Token     *models.VerificationToken
}

// Service is the token store.
type Service struct {
	repo *repository.Repository
	cfg  config.TokenConfig
	clk  clock.Clock
}

// NewService creates a token service.
func NewService(repo *repository.Repository, cfg config.TokenConfig, clk clock.Clock) *Service {
	return &Service{repo: repo, cfg: cfg, clk: clk}
}

// WithStore returns a copy of the service bound to the given repository,
// used to join a caller's transaction.
func (s *Service) WithStore(repo *repository.Repository) *Service {
	return &Service{repo: repo, cfg: s.cfg, clk: s.clk}
}

// Issue creates a new token for (record, type) and invalidates every prior
// unused token for that pair, so at most one live token exists at a time.
func (s *Service) Issue(ctx context.Context, typ models.TokenType, recordID uuid.UUID, recordType models.RecordType, subject Subject) (*Issued, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("issue token: unknown type %q", typ)
	}

	plaintext, hash, err := generate()
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	ttl := s.cfg.InstallerTTL
	if typ == models.TokenCustomerActivation {
		ttl = s.cfg.CustomerTTL
	}

	tok := &models.VerificationToken{
		TokenHash:       hash,
		Type:            typ,
		RecordID:        recordID,
		RecordType:      recordType,
		UserID:          subject.UserID,
		CustomerContact: subject.CustomerContact,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
	}

	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		if _, err := r.InvalidatePriorTokens(ctx, recordID, typ, now); err != nil {
			return fmt.Errorf("invalidate prior tokens: %w", err)
		}
		if err := r.CreateToken(ctx, tok); err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Issued{Plaintext: plaintext, Token: tok}, nil
}

// Reissue replaces a live token with a fresh value while carrying the
// reminder bookkeeping over. Reminder links embed the plaintext, which is
// never stored, so each reminder ships a newly issued token instead.
func (s *Service) Reissue(ctx context.Context, old *models.VerificationToken) (*Issued, error) {
	plaintext, hash, err := generate()
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	ttl := s.cfg.InstallerTTL
	if old.Type == models.TokenCustomerActivation {
		ttl = s.cfg.CustomerTTL
	}

	tok := &models.VerificationToken{
		TokenHash:          hash,
		Type:               old.Type,
		RecordID:           old.RecordID,
		RecordType:         old.RecordType,
		UserID:             old.UserID,
		CustomerContact:    old.CustomerContact,
		ExpiresAt:          now.Add(ttl),
		RemindersSent:      old.RemindersSent,
		LastReminderSentAt: old.LastReminderSentAt,
		CreatedAt:          old.CreatedAt, // keep the original issuance time for cadence checks
	}

	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		if _, err := r.InvalidatePriorTokens(ctx, old.RecordID, old.Type, now); err != nil {
			return fmt.Errorf("invalidate prior tokens: %w", err)
		}
		if err := r.CreateToken(ctx, tok); err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Issued{Plaintext: plaintext, Token: tok}, nil
}

// Validate classifies a token without mutating it. The returned token is the
// stored record; callers still need Consume to spend it.
func (s *Service) Validate(ctx context.Context, plaintext string, want models.TokenType) (*models.VerificationToken, error) {
	tok, err := s.repo.GetTokenByHash(ctx, Hash(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalid
		}
		return nil, err
	}

	if tok.IsUsed {
		return nil, ErrAlreadyUsed
	}
	if tok.Expired(s.clk.Now()) {
		return nil, ErrExpired
	}
	if tok.Type != want {
		return nil, ErrTypeMismatch
	}
	return tok, nil
}

// Consume atomically marks the token used. Exactly one of any number of
// concurrent duplicate calls succeeds; the rest get ErrAlreadyUsed.
func (s *Service) Consume(ctx context.Context, id uuid.UUID) error {
	consumed, err := s.repo.ConsumeToken(ctx, id, s.clk.Now())
	if err != nil {
		return err
	}
	if !consumed {
		return ErrAlreadyUsed
	}
	return nil
}

// CleanupExpired bulk-removes tokens past their expiry. Idempotent.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredTokens(ctx, s.clk.Now())
}

// Hash computes the SHA-256 hex digest of a token value.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func generate() (plaintext, hash string, err error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, Hash(plaintext), nil
}
