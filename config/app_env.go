package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/pkg/utils"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// developmentEnvs are the APP_ENV values where the server may create tables itself.
var developmentEnvs = []string{"", "dev", "development", "local", "test", "testing"}

// InitializeEnvFile loads DOTENV_FILES (comma separated, default ".env")
// without overriding variables already set by the process environment.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBoolOrDefault("SKIP_DOTENV", false) {
		logger.Info("Skipping .env load", "reason", "SKIP_DOTENV")
		return
	}

	files := utils.GetEnvListOrDefault("DOTENV_FILES", []string{".env"})
	var loaded []string
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			logger.Debug("Env file not loaded", "file", file, "error", err.Error())
			continue
		}
		loaded = append(loaded, file)
	}

	if len(loaded) == 0 {
		logger.Warn("No env file loaded; relying on process environment", "candidates", files)
		return
	}
	logger.Info("Environment variables loaded", "files", loaded)
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

// IsProduction gates the fail-fast checks that only make sense for a live deployment.
func IsProduction() bool {
	return utils.IsProductionEnv()
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	if slices.Contains(developmentEnvs, env) {
		return nil
	}
	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: %q)", AppEnvKey, env, developmentEnvs)
}
