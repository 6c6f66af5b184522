package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	if got := ServerPort(); got != 8080 {
		t.Fatalf("ServerPort default = %d, want 8080", got)
	}
	if got := ServerAddr(); got != ":8080" {
		t.Fatalf("ServerAddr default = %q", got)
	}
	if got := DatabasePath(); got != "mnemora.db" {
		t.Fatalf("DatabasePath default = %q", got)
	}
	if got := ForgetThreshold(); got != 30*24*time.Hour {
		t.Fatalf("ForgetThreshold default = %v", got)
	}
	if got := MaxMemoriesPerTopic(); got != 10 {
		t.Fatalf("MaxMemoriesPerTopic default = %d", got)
	}
	if got := MaintenanceInterval(); got != time.Hour {
		t.Fatalf("MaintenanceInterval default = %v", got)
	}
	if got := InjectionThreshold(); got != 0.3 {
		t.Fatalf("InjectionThreshold default = %v", got)
	}
	if got := MaxRecallMemories(); got != 10 {
		t.Fatalf("MaxRecallMemories default = %d", got)
	}
	if got := MaxInjectedMemories(); got != 5 {
		t.Fatalf("MaxInjectedMemories default = %d", got)
	}
	if got := EmbeddingCacheSize(); got != 4096 {
		t.Fatalf("EmbeddingCacheSize default = %d", got)
	}
	if got := RateLimitRPS(); got != 100 {
		t.Fatalf("RateLimitRPS default = %v", got)
	}
	if got := RateLimitBurst(); got != 20 {
		t.Fatalf("RateLimitBurst default = %d", got)
	}
	if got := LogLevel(); got != "info" {
		t.Fatalf("LogLevel default = %q", got)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/graph.db")
	t.Setenv("FORGET_THRESHOLD_DAYS", "7")
	t.Setenv("MAINTENANCE_INTERVAL_HOURS", "0.5")
	t.Setenv("WEIGHT_SEMANTIC", "0.6")
	t.Setenv("LOG_LEVEL", "debug")

	if got := ServerPort(); got != 9090 {
		t.Fatalf("ServerPort = %d, want 9090", got)
	}
	if got := DatabasePath(); got != "/tmp/graph.db" {
		t.Fatalf("DatabasePath = %q", got)
	}
	if got := ForgetThreshold(); got != 7*24*time.Hour {
		t.Fatalf("ForgetThreshold = %v", got)
	}
	if got := MaintenanceInterval(); got != 30*time.Minute {
		t.Fatalf("MaintenanceInterval = %v", got)
	}
	if got := SemanticWeight(); got != 0.6 {
		t.Fatalf("SemanticWeight = %v", got)
	}
	if got := LogLevel(); got != "debug" {
		t.Fatalf("LogLevel = %q", got)
	}
}

func TestForgetThresholdDisable(t *testing.T) {
	t.Setenv("FORGET_THRESHOLD_DAYS", "0")
	if got := ForgetThreshold(); got != 0 {
		t.Fatalf("ForgetThreshold with 0 days = %v, want 0", got)
	}
}

func TestProviderKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("EMBEDDING_PROVIDER", "mock")

	if got := LLMAPIKey(); got != "sk-test" {
		t.Fatalf("LLMAPIKey = %q", got)
	}
	if got := EmbeddingAPIKey(); got != "" {
		t.Fatalf("EmbeddingAPIKey for mock = %q, want empty", got)
	}
}
