// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/coatsure/warrantyd/internal/config"
)

// Notifier implements Gateway over SMTP (go-mail) and an SMS webhook.
type Notifier struct {
	smtp *config.SMTPConfig
	sms  *config.SMSConfig
	http *http.Client
}

// New creates a Notifier. SMTP host and from address are required; the SMS
// webhook is optional.
func New(smtp *config.SMTPConfig, sms *config.SMSConfig) (*Notifier, error) {
	if smtp.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if smtp.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Notifier{
		smtp: smtp,
		sms:  sms,
		http: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SendEmail sends one email via SMTP.
func (n *Notifier) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg := mail.NewMsg()

	if n.smtp.FromName != "" {
		if err := msg.FromFormat(n.smtp.FromName, n.smtp.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(n.smtp.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	opts := []mail.Option{
		mail.WithPort(n.smtp.Port),
	}

	if n.smtp.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS for everything else
		if n.smtp.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if n.smtp.Username != "" && n.smtp.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.smtp.Username),
			mail.WithPassword(n.smtp.Password),
		)
	}

	client, err := mail.NewClient(n.smtp.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// SendSMS posts the message to the configured delivery webhook.
func (n *Notifier) SendSMS(ctx context.Context, to, body string) error {
	if n.sms == nil || n.sms.WebhookURL == "" {
		return ErrSMSDisabled
	}

	payload, err := json.Marshal(map[string]string{
		"from": n.sms.From,
		"to":   to,
		"body": body,
	})
	if err != nil {
		return fmt.Errorf("encoding sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.sms.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook returned %s", resp.Status)
	}
	return nil
}
