// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coatsure/warrantyd/internal/config"
	"github.com/coatsure/warrantyd/internal/notify"
)

func TestNew_RequiresSMTPConfig(t *testing.T) {
	_, err := notify.New(&config.SMTPConfig{}, &config.SMSConfig{})
	assert.Error(t, err)

	_, err = notify.New(&config.SMTPConfig{Host: "mail.example.com"}, &config.SMSConfig{})
	assert.Error(t, err)

	n, err := notify.New(&config.SMTPConfig{
		Host: "mail.example.com",
		From: "noreply@example.com",
	}, &config.SMSConfig{})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestSendSMS_PostsToWebhook(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := notify.New(&config.SMTPConfig{
		Host: "mail.example.com",
		From: "noreply@example.com",
	}, &config.SMSConfig{WebhookURL: srv.URL, From: "warrantyd"})
	require.NoError(t, err)

	require.NoError(t, n.SendSMS(context.Background(), "+4915112345678", "inspection due"))
	assert.Equal(t, "warrantyd", got["from"])
	assert.Equal(t, "+4915112345678", got["to"])
	assert.Equal(t, "inspection due", got["body"])
}

func TestSendSMS_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := notify.New(&config.SMTPConfig{
		Host: "mail.example.com",
		From: "noreply@example.com",
	}, &config.SMSConfig{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = n.SendSMS(context.Background(), "+4915112345678", "inspection due")
	assert.ErrorContains(t, err, "502")
}

func TestSendSMS_Disabled(t *testing.T) {
	n, err := notify.New(&config.SMTPConfig{
		Host: "mail.example.com",
		From: "noreply@example.com",
	}, &config.SMSConfig{})
	require.NoError(t, err)

	err = n.SendSMS(context.Background(), "+4915112345678", "inspection due")
	assert.ErrorIs(t, err, notify.ErrSMSDisabled)
}
