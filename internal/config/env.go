package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over the file.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	cfg.BotToken = getEnv("BOT_TOKEN", cfg.BotToken)
	cfg.BotAPIBaseURL = getEnv("BOT_API_BASE_URL", cfg.BotAPIBaseURL)
	cfg.DatabaseDSN = getEnv("DATABASE_URL", cfg.DatabaseDSN)

	cfg.InterviewWebhookURL = getEnv("N8N_INTERVIEW_WEBHOOK_URL", cfg.InterviewWebhookURL)
	cfg.SalesWebhookURL = getEnv("N8N_SALES_WEBHOOK_URL", cfg.SalesWebhookURL)
	cfg.CVScanWebhookURL = getEnv("N8N_CV_SCAN_WEBHOOK_URL", cfg.CVScanWebhookURL)
	cfg.TicketWebhookURL = getEnv("N8N_TICKET_WEBHOOK_URL", cfg.TicketWebhookURL)
	cfg.SafetyWebhookURL = getEnv("N8N_SAFETY_WEBHOOK_URL", cfg.SafetyWebhookURL)
	cfg.KnowledgeWebhookURL = getEnv("N8N_KNOWLEDGE_WEBHOOK_URL", cfg.KnowledgeWebhookURL)

	cfg.CollaboratorTimeout = getEnvDuration("N8N_TIMEOUT", cfg.CollaboratorTimeout)
	cfg.UnreadyRetryAttempts = getEnvInt("N8N_RETRY_ATTEMPTS", cfg.UnreadyRetryAttempts)
	cfg.UnreadyRetryInterval = getEnvDuration("N8N_RETRY_INTERVAL", cfg.UnreadyRetryInterval)

	cfg.AccessWindow = getEnvDuration("ACCESS_WINDOW", cfg.AccessWindow)
	cfg.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", cfg.DisplayTimezone)

	cfg.AdminAddr = getEnv("ADMIN_ADDR", cfg.AdminAddr)
	cfg.AdminUser = getEnv("ADMIN_USER", cfg.AdminUser)
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash)
	cfg.AdminJWTSecret = getEnv("ADMIN_JWT_SECRET", cfg.AdminJWTSecret)
	cfg.AdminTokenValidity = getEnvDuration("ADMIN_TOKEN_VALIDITY", cfg.AdminTokenValidity)

	cfg.ManagerChatID = getEnvInt64("MANAGER_CHAT_ID", cfg.ManagerChatID)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
