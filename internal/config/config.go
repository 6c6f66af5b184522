package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MNEMORA_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MNEMORA_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabasePath returns the SQLite database file path.
// Defaults to "mnemora.db" if not set.
func DatabasePath() string {
	p := os.Getenv("DATABASE_PATH")
	if p == "" {
		return "mnemora.db"
	}
	return p
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// OpenAIBaseURL overrides the API endpoint for OpenAI-compatible servers.
// Empty means the official endpoint.
func OpenAIBaseURL() string {
	return os.Getenv("OPENAI_BASE_URL")
}

// LLMProvider returns the configured LLM provider.
// Empty disables LLM-assisted consolidation; the heuristic merge is used.
// Valid values: openai, mock, or empty.
func LLMProvider() string {
	return os.Getenv("LLM_PROVIDER")
}

// EmbeddingProvider returns the configured embedding provider.
// Empty disables semantic recall entirely.
// Valid values: openai, mock, or empty.
func EmbeddingProvider() string {
	return os.Getenv("EMBEDDING_PROVIDER")
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "mock", "":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock", "":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingCacheSize returns the LRU capacity for cached embeddings.
// Defaults to 4096 if not set.
func EmbeddingCacheSize() int {
	size, err := strconv.Atoi(os.Getenv("EMBEDDING_CACHE_SIZE"))
	if err != nil || size <= 0 {
		return 4096
	}
	return size
}

// ForgetThreshold returns how long a memory must go untouched before decay
// applies. Defaults to 30 days. Zero or negative disables forgetting.
func ForgetThreshold() time.Duration {
	days, err := strconv.ParseFloat(os.Getenv("FORGET_THRESHOLD_DAYS"), 64)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return time.Duration(days * 24 * float64(time.Hour))
}

// MaxMemoriesPerTopic returns the per-concept memory count that triggers
// consolidation. Defaults to 10 if not set.
func MaxMemoriesPerTopic() int {
	n, err := strconv.Atoi(os.Getenv("MAX_MEMORIES_PER_TOPIC"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// MaintenanceInterval returns how often the background maintenance pass runs.
// Defaults to 1 hour if not set.
func MaintenanceInterval() time.Duration {
	hours, err := strconv.ParseFloat(os.Getenv("MAINTENANCE_INTERVAL_HOURS"), 64)
	if err != nil || hours <= 0 {
		return time.Hour
	}
	return time.Duration(hours * float64(time.Hour))
}

// InjectionThreshold returns the minimum top score required before recalled
// memories are injected into a prompt. Defaults to 0.3 if not set.
func InjectionThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("INJECTION_THRESHOLD"), 64)
	if err != nil || t <= 0 {
		return 0.3
	}
	return t
}

// MaxRecallMemories returns the cap on results returned by a recall.
// Defaults to 10 if not set.
func MaxRecallMemories() int {
	n, err := strconv.Atoi(os.Getenv("MAX_RECALL_MEMORIES"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// MaxInjectedMemories returns the cap on memories woven into a prompt.
// Defaults to 5 if not set.
func MaxInjectedMemories() int {
	n, err := strconv.Atoi(os.Getenv("MAX_INJECTED_MEMORIES"))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

// SemanticWeight returns the blend weight for semantic recall results.
func SemanticWeight() float64 {
	return weightEnv("WEIGHT_SEMANTIC", 0.40)
}

// KeywordWeight returns the blend weight for keyword recall results.
func KeywordWeight() float64 {
	return weightEnv("WEIGHT_KEYWORD", 0.25)
}

// AssociativeWeight returns the blend weight for associative recall results.
func AssociativeWeight() float64 {
	return weightEnv("WEIGHT_ASSOCIATIVE", 0.20)
}

// TemporalWeight returns the blend weight for temporal recall results.
func TemporalWeight() float64 {
	return weightEnv("WEIGHT_TEMPORAL", 0.10)
}

// StrengthWeight returns the blend weight for strength recall results.
func StrengthWeight() float64 {
	return weightEnv("WEIGHT_STRENGTH", 0.05)
}

func weightEnv(key string, def float64) float64 {
	w, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || w < 0 {
		return def
	}
	return w
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
