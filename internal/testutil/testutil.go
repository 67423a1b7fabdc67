// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/coatsure/warrantyd/internal/database"
	"github.com/coatsure/warrantyd/internal/i18n"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/repository"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// InitI18n loads the message catalog once for the test binary.
func InitI18n(t *testing.T) {
	t.Helper()
	i18nOnce.Do(func() {
		i18nErr = i18n.Init()
	})
	require.NoError(t, i18nErr)
}

var (
	i18nOnce sync.Once
	i18nErr  error
)

// NewTestWarranty creates a warranty in the given status with sensible
// defaults for the mandatory fields.
func NewTestWarranty(t *testing.T, repo *repository.Repository, status models.WarrantyStatus) *models.WarrantyRecord {
	t.Helper()
	ctx := context.Background()
	w := &models.WarrantyRecord{
		VehicleVIN:     "WVWZZZ1JZXW000" + uuid.NewString()[:3],
		CustomerName:   "Test Customer",
		CustomerEmail:  "customer@example.com",
		CustomerPhone:  "+4915112345678",
		InstallerID:    uuid.New(),
		InstallerEmail: "installer@example.com",
		Status:         status,
	}
	require.NoError(t, repo.CreateWarranty(ctx, w))
	return w
}

// NewActiveWarranty creates an active warranty with coverage dates derived
// from the given activation time.
func NewActiveWarranty(t *testing.T, repo *repository.Repository, activatedAt, dueDate, graceEnd time.Time) *models.WarrantyRecord {
	t.Helper()
	ctx := context.Background()
	w := &models.WarrantyRecord{
		VehicleVIN:     "WVWZZZ1JZXW000" + uuid.NewString()[:3],
		CustomerName:   "Test Customer",
		CustomerEmail:  "customer@example.com",
		CustomerPhone:  "+4915112345678",
		InstallerID:    uuid.New(),
		InstallerEmail: "installer@example.com",
		Status:         models.WarrantyActive,
		IsActive:       true,
		ActivatedAt:    &activatedAt,
		LastVerifiedAt: &activatedAt,
		DueDate:        &dueDate,
		GracePeriodEnd: &graceEnd,
	}
	require.NoError(t, repo.CreateWarranty(ctx, w))
	return w
}

// NewTestInspection creates an inspection for the given warranty.
func NewTestInspection(t *testing.T, repo *repository.Repository, warrantyID uuid.UUID, status models.InspectionStatus) *models.InspectionRecord {
	t.Helper()
	ctx := context.Background()
	in := &models.InspectionRecord{
		WarrantyID:  warrantyID,
		InspectorID: uuid.New(),
		Status:      status,
		Notes:       "annual check",
	}
	require.NoError(t, repo.CreateInspection(ctx, in))
	return in
}

// SentEmail is one recorded email from the fake gateway.
type SentEmail struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// SentSMS is one recorded SMS from the fake gateway.
type SentSMS struct {
	To   string
	Body string
}

// FakeGateway records notifications instead of sending them. Set EmailErr or
// SMSErr to make the next sends fail.
type FakeGateway struct {
	mu       sync.Mutex
	Emails   []SentEmail
	SMS      []SentSMS
	EmailErr error
	SMSErr   error
}

// SendEmail records the email or returns the injected error.
func (g *FakeGateway) SendEmail(_ context.Context, to, subject, htmlBody, textBody string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.EmailErr != nil {
		return g.EmailErr
	}
	g.Emails = append(g.Emails, SentEmail{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
	return nil
}

// SendSMS records the SMS or returns the injected error.
func (g *FakeGateway) SendSMS(_ context.Context, to, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SMSErr != nil {
		return g.SMSErr
	}
	g.SMS = append(g.SMS, SentSMS{To: to, Body: body})
	return nil
}

// EmailCount returns the number of recorded emails.
func (g *FakeGateway) EmailCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Emails)
}

// LastEmail returns the most recent recorded email.
func (g *FakeGateway) LastEmail(t *testing.T) SentEmail {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.Emails)
	return g.Emails[len(g.Emails)-1]
}

// StaticChecker answers every submission completeness check with a fixed
// result.
type StaticChecker struct {
	Complete bool
	Err      error
}

// IsSubmissionComplete returns the configured result.
func (c StaticChecker) IsSubmissionComplete(context.Context, uuid.UUID, models.RecordType) (bool, error) {
	return c.Complete, c.Err
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
