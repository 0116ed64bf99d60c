package config

import (
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Values read from the environment. The defaults are what tests and a bare local run see.
var (
	IS_PROD      = false
	LogLevel     = slog.LevelDebug
	AuthToken    = ""
	NoAuthBypass = false

	QdrantHost           = QdrantDefaultHost
	QdrantPort           = QdrantGrpcPort
	QdrantAPIKey         = ""
	QdrantUseTLS         = false
	QdrantCollectionName = EmbeddingDBName

	LLMProvider       = ProviderOpenAI
	EmbeddingProvider = ProviderOpenAI
	OpenAIAPIKey      = ""
	OpenAIChatName    = OpenAIChatModel
	OpenAIEmbedName   = OpenAIEmbeddingModel
	GoogleAPIKey      = ""

	RedisAddr     = defaultRedisAddr
	RedisPassword = ""
)

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() {
	_ = godotenv.Load()

	IS_PROD = envBool("IS_PROD", IS_PROD)
	LogLevel = envLevel("LOG_LEVEL", LogLevel)
	AuthToken = envString("AUTH_TOKEN", AuthToken)
	NoAuthBypass = envBool("NO_AUTH_BYPASS", NoAuthBypass)

	QdrantHost, QdrantUseTLS = parseQdrantHost(envString("QDRANT_HOST", QdrantHost))
	QdrantPort = envInt("QDRANT_PORT", QdrantPort)
	QdrantAPIKey = envString("QDRANT_API_KEY", QdrantAPIKey)
	QdrantUseTLS = envBool("QDRANT_USE_TLS", QdrantUseTLS)
	QdrantCollectionName = envString("QDRANT_COLLECTION_NAME", QdrantCollectionName)

	LLMProvider = strings.ToLower(envString("LLM_PROVIDER", LLMProvider))
	EmbeddingProvider = strings.ToLower(envString("EMBEDDING_PROVIDER", EmbeddingProvider))
	OpenAIAPIKey = envString("OPENAI_API_KEY", OpenAIAPIKey)
	OpenAIChatName = envString("OPENAI_CHAT_MODEL", OpenAIChatName)
	OpenAIEmbedName = envString("OPENAI_EMBEDDING_MODEL", OpenAIEmbedName)
	GoogleAPIKey = envString("GOOGLE_API_KEY", GoogleAPIKey)

	RedisAddr = envString("REDIS_ADDR", RedisAddr)
	RedisPassword = envString("REDIS_PASSWORD", RedisPassword)
}

// parseQdrantHost accepts a bare host, host:port or a cloud URL like https://xyz.cloud.qdrant.io:6333.
// Only the host part is kept because the gRPC port differs from the REST one. IPv6 hosts stay
// bracketed since the client appends ":port" to them.
func parseQdrantHost(raw string) (string, bool) {
	useTLS := QdrantUseTLS
	host := strings.TrimSpace(raw)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return QdrantDefaultHost, useTLS
		}
		if u.Scheme == "https" {
			useTLS = true
		}
		host = u.Hostname()
	} else {
		host = strings.TrimSuffix(host, "/")
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}

	if host == "" {
		return QdrantDefaultHost, useTLS
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return host, useTLS
}

func envString(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envLevel(key string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return fallback
	}
	return level
}
