// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package config builds the typed runtime configuration from CLI flags,
// environment variables and an optional TOML file. Every lifecycle tunable
// has a documented default, so an empty configuration is fully usable.
package config

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/coatsure/warrantyd/internal/policy"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	SMS       SMSConfig
	Policy    policy.Config
	Tokens    TokenConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host    string
	Port    int
	BaseURL string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	From     string
	FromName string
	Username string
	Password string
	TLS      bool
}

// SMSConfig points at the SMS delivery webhook. Empty URL disables SMS.
type SMSConfig struct {
	WebhookURL string
	From       string
}

// TokenConfig holds the verification token lifetimes.
type TokenConfig struct {
	InstallerTTL time.Duration
	CustomerTTL  time.Duration
}

// SchedulerConfig holds the sweep intervals and the activation reminder
// cadence.
type SchedulerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	AutoStart              bool
	ReminderInterval       time.Duration
	GraceInterval          time.Duration
	ReconcileInterval      time.Duration
	InterSendDelay         time.Duration
	ActivationMaxReminders int
	ActivationInitialDelay time.Duration
	ActivationCooldown     time.Duration
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:    cmd.String("host"),
			Port:    int(cmd.Int("port")),
			BaseURL: cmd.String("base-url"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		SMS: SMSConfig{
			WebhookURL: cmd.String("sms-webhook-url"),
			From:       cmd.String("sms-from"),
		},
		Policy: policy.Config{
			CycleMonths:             int(cmd.Int("cycle-months")),
			GraceDays:               int(cmd.Int("grace-days")),
			ElevenMonthOffsetMonths: int(cmd.Int("first-reminder-offset-months")),
			ThirtyDayOffsetDays:     int(cmd.Int("second-reminder-offset-days")),
		},
		Tokens: TokenConfig{
			InstallerTTL: time.Duration(cmd.Int("installer-token-ttl-days")) * 24 * time.Hour,
			CustomerTTL:  time.Duration(cmd.Int("customer-token-ttl-days")) * 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			AutoStart:              cmd.Bool("scheduler-auto-start"),
			ReminderInterval:       cmd.Duration("reminder-sweep-interval"),
			GraceInterval:          cmd.Duration("grace-sweep-interval"),
			ReconcileInterval:      cmd.Duration("reconcile-sweep-interval"),
			InterSendDelay:         cmd.Duration("inter-send-delay"),
			ActivationMaxReminders: int(cmd.Int("activation-max-reminders")),
			ActivationInitialDelay: cmd.Duration("activation-initial-delay"),
			ActivationCooldown:     cmd.Duration("activation-cooldown"),
		},
	}
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Value:   "http://localhost:8080",
			Usage:   "Base URL used in verification links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/warrantyd.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},

		// Mail transport
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for notifications",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP auth username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP auth password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},

		// SMS transport
		&cli.StringFlag{
			Name:    "sms-webhook-url",
			Usage:   "Webhook URL for SMS delivery (empty disables SMS)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_WEBHOOK_URL"), toml.TOML("sms.webhook_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "sms-from",
			Usage:   "Sender ID for SMS",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMS_FROM"), toml.TOML("sms.from", configFile)),
		},

		// Date policy
		&cli.IntFlag{
			Name:    "cycle-months",
			Value:   12,
			Usage:   "Months between verifications",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CYCLE_MONTHS"), toml.TOML("policy.cycle_months", configFile)),
		},
		&cli.IntFlag{
			Name:    "grace-days",
			Value:   30,
			Usage:   "Grace period after the due date in days",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GRACE_DAYS"), toml.TOML("policy.grace_days", configFile)),
		},
		&cli.IntFlag{
			Name:    "first-reminder-offset-months",
			Value:   1,
			Usage:   "Months before the due date for the first reminder",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FIRST_REMINDER_OFFSET_MONTHS"), toml.TOML("policy.first_reminder_offset_months", configFile)),
		},
		&cli.IntFlag{
			Name:    "second-reminder-offset-days",
			Value:   30,
			Usage:   "Days before the due date for the second reminder",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SECOND_REMINDER_OFFSET_DAYS"), toml.TOML("policy.second_reminder_offset_days", configFile)),
		},

		// Tokens
		&cli.IntFlag{
			Name:    "installer-token-ttl-days",
			Value:   60,
			Usage:   "Installer verification token lifetime in days",
			Sources: cli.NewValueSourceChain(cli.EnvVar("INSTALLER_TOKEN_TTL_DAYS"), toml.TOML("tokens.installer_ttl_days", configFile)),
		},
		&cli.IntFlag{
			Name:    "customer-token-ttl-days",
			Value:   30,
			Usage:   "Customer activation token lifetime in days",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CUSTOMER_TOKEN_TTL_DAYS"), toml.TOML("tokens.customer_ttl_days", configFile)),
		},

		// Scheduler
		&cli.BoolFlag{
			Name:    "scheduler-auto-start",
			Value:   true,
			Usage:   "Start the periodic sweeps with the server",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SCHEDULER_AUTO_START"), toml.TOML("scheduler.auto_start", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reminder-sweep-interval",
			Value:   time.Hour,
			Usage:   "Interval between reminder dispatch sweeps",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REMINDER_SWEEP_INTERVAL"), toml.TOML("scheduler.reminder_interval", configFile)),
		},
		&cli.DurationFlag{
			Name:    "grace-sweep-interval",
			Value:   24 * time.Hour,
			Usage:   "Interval between grace-period expiry sweeps",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GRACE_SWEEP_INTERVAL"), toml.TOML("scheduler.grace_interval", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reconcile-sweep-interval",
			Value:   24 * time.Hour,
			Usage:   "Interval between status reconciliation sweeps",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECONCILE_SWEEP_INTERVAL"), toml.TOML("scheduler.reconcile_interval", configFile)),
		},
		&cli.DurationFlag{
			Name:    "inter-send-delay",
			Value:   time.Second,
			Usage:   "Fixed delay between notification sends in one sweep",
			Sources: cli.NewValueSourceChain(cli.EnvVar("INTER_SEND_DELAY"), toml.TOML("scheduler.inter_send_delay", configFile)),
		},
		&cli.IntFlag{
			Name:    "activation-max-reminders",
			Value:   3,
			Usage:   "Maximum activation reminders per token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACTIVATION_MAX_REMINDERS"), toml.TOML("scheduler.activation_max_reminders", configFile)),
		},
		&cli.DurationFlag{
			Name:    "activation-initial-delay",
			Value:   24 * time.Hour,
			Usage:   "Wait after token issuance before the first activation reminder",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACTIVATION_INITIAL_DELAY"), toml.TOML("scheduler.activation_initial_delay", configFile)),
		},
		&cli.DurationFlag{
			Name:    "activation-cooldown",
			Value:   72 * time.Hour,
			Usage:   "Minimum gap between activation reminders",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACTIVATION_COOLDOWN"), toml.TOML("scheduler.activation_cooldown", configFile)),
		},
	}
}
