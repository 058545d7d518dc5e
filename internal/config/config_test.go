package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Name: "onboarding"},
		Auth:     AuthConfig{JWTSecret: "secret", JobSecret: "job-secret"},
		Mail:     MailConfig{Transport: "log"},
		Digest:   DigestConfig{Timezone: "UTC", Concurrency: 4},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "missing job secret", mutate: func(c *Config) { c.Auth.JobSecret = "" }, wantErr: "JOB_SECRET"},
		{name: "calendar without credentials", mutate: func(c *Config) { c.Calendar.Enabled = true }, wantErr: "GOOGLEAPIS_CREDENTIALS"},
		{name: "smtp without host", mutate: func(c *Config) { c.Mail.Transport = "smtp" }, wantErr: "SMTP_HOST"},
		{name: "smtp without timeout", mutate: func(c *Config) { c.Mail.Transport, c.Mail.SMTPHost = "smtp", "mail.example.com" }, wantErr: "SMTP_TIMEOUT"},
		{name: "amqp without url", mutate: func(c *Config) { c.Mail.Transport = "amqp" }, wantErr: "RABBIT_URL"},
		{name: "unknown transport", mutate: func(c *Config) { c.Mail.Transport = "pigeon" }, wantErr: "MAIL_TRANSPORT"},
		{name: "bad timezone", mutate: func(c *Config) { c.Digest.Timezone = "Mars/Olympus" }, wantErr: "DIGEST_TIMEZONE"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Digest.Concurrency = 0 }, wantErr: "DIGEST_SEND_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JOB_SECRET", "test-job-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("CALENDAR_TIMEOUT", "4s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Calendar.Timeout != 4*time.Second {
		t.Errorf("Expected 4s calendar timeout, got %s", cfg.Calendar.Timeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 allowed origins, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Mail.Transport != "log" {
		t.Errorf("Expected default log transport, got %s", cfg.Mail.Transport)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
