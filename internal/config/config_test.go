// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestFlags(t *testing.T) {
	flags := Flags()

	assert.NotEmpty(t, flags)

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	assert.True(t, flagNames["host"], "should have host flag")
	assert.True(t, flagNames["port"], "should have port flag")
	assert.True(t, flagNames["base-url"], "should have base-url flag")
	assert.True(t, flagNames["database-dsn"], "should have database-dsn flag")
	assert.True(t, flagNames["cycle-months"], "should have cycle-months flag")
	assert.True(t, flagNames["grace-days"], "should have grace-days flag")
	assert.True(t, flagNames["installer-token-ttl-days"], "should have installer-token-ttl-days flag")
	assert.True(t, flagNames["activation-cooldown"], "should have activation-cooldown flag")
	assert.True(t, flagNames["sms-webhook-url"], "should have sms-webhook-url flag")
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "text", cfg.Log.Format)

			// Documented lifecycle defaults.
			assert.Equal(t, 12, cfg.Policy.CycleMonths)
			assert.Equal(t, 30, cfg.Policy.GraceDays)
			assert.Equal(t, 1, cfg.Policy.ElevenMonthOffsetMonths)
			assert.Equal(t, 30, cfg.Policy.ThirtyDayOffsetDays)
			assert.Equal(t, 60*24*time.Hour, cfg.Tokens.InstallerTTL)
			assert.Equal(t, 30*24*time.Hour, cfg.Tokens.CustomerTTL)
			assert.Equal(t, 3, cfg.Scheduler.ActivationMaxReminders)
			assert.Equal(t, 24*time.Hour, cfg.Scheduler.ActivationInitialDelay)
			assert.Equal(t, 72*time.Hour, cfg.Scheduler.ActivationCooldown)
			assert.True(t, cfg.Scheduler.AutoStart)

			// SMS is off until a webhook is configured.
			assert.Empty(t, cfg.SMS.WebhookURL)

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "./data/test.db", cfg.Database.DSN)
			assert.Equal(t, 6, cfg.Policy.CycleMonths)
			assert.Equal(t, 14, cfg.Policy.GraceDays)
			assert.Equal(t, 5*24*time.Hour, cfg.Tokens.CustomerTTL)
			assert.Equal(t, 30*time.Minute, cfg.Scheduler.ReminderInterval)
			assert.False(t, cfg.Scheduler.AutoStart)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--database-dsn", "./data/test.db",
		"--cycle-months", "6",
		"--grace-days", "14",
		"--customer-token-ttl-days", "5",
		"--reminder-sweep-interval", "30m",
		"--scheduler-auto-start=false",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
