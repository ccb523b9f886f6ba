package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TAPROOM_API_URL", "")
	t.Setenv("SERVER_PORT", "")

	cfg := Load()

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected default API URL, got %s", cfg.API.BaseURL)
	}
	if cfg.UI.MutationSettleDelay != 0 {
		t.Errorf("Expected no settle delay by default, got %s", cfg.UI.MutationSettleDelay)
	}
	if cfg.Features.EnableEvents {
		t.Error("Expected events to be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TAPROOM_API_URL", "http://api.internal:9000/")
	t.Setenv("TAPROOM_API_TIMEOUT", "3")
	t.Setenv("UI_MUTATION_SETTLE_DELAY", "1s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("FEATURE_STOCK_CACHING", "true")

	cfg := Load()

	if cfg.API.BaseURL != "http://api.internal:9000" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %s", cfg.API.Timeout)
	}
	if cfg.UI.MutationSettleDelay != time.Second {
		t.Errorf("Expected 1s settle delay, got %s", cfg.UI.MutationSettleDelay)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if !cfg.Features.EnableStockCaching {
		t.Error("Expected stock caching enabled")
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")

	if got := getEnvInt("SOME_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}
}

func TestValidate_SessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SESSION_SECURE", "")

	cfg := Load()
	if !cfg.Session.UsesDefaultSecret() {
		t.Error("Expected the placeholder secret by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected insecure local defaults to pass, got %v", err)
	}

	t.Setenv("SESSION_SECURE", "true")
	cfg = Load()
	if err := cfg.Validate(); err == nil {
		t.Error("Expected secure sessions with the placeholder secret to be rejected")
	}

	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	cfg = Load()
	if cfg.Session.UsesDefaultSecret() {
		t.Error("Expected the configured secret to be used")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected a configured secret to pass, got %v", err)
	}
}
