package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName    string
		Env        string
		Build      string
		Debug      bool
		TestMode   bool
		SecretKey  string
		Regulation string // default grading regulation for new sessions

		RollbarToken string

		Server      ServerConfig
		Database    DatabaseConfig
		Storage     StorageConfig
		Recognition RecognitionConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
		SessionIdleTimeout time.Duration // live ledgers unused for longer are dropped from memory
		MaxUploadSize      string        // body limit of upload and import requests, e.g. "10M"
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Driver string // memory | postgres
	}

	RecognitionConfig struct {
		APIKey  string
		Model   string
		BaseURL string
		Timeout time.Duration
	}
)

func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

// NewConfig loads the configuration from defaults, the `config/.env.<env>` file (if any) and the environment.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "GradeLedger")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("secretKey", "k2#u9v!0-ledger-dev-only=t8w$q1z&e5r(7y@)")
	conf.SetDefault("regulation", "2021")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", ":8000")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("jwtExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("shutdownTimeout", 5*time.Second)
	conf.SetDefault("sessionIdleTimeout", 30*time.Minute)
	conf.SetDefault("maxUploadSize", "10M")
	conf.SetDefault("disableReqLogs", false)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "gradeledger")
	conf.SetDefault("dbUser", "gradeledger")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("storageDriver", "memory")

	conf.SetDefault("recognitionAPIKey", "")
	conf.SetDefault("recognitionModel", "gpt-4o-mini")
	conf.SetDefault("recognitionBaseURL", "")
	conf.SetDefault("recognitionTimeout", 60*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		Regulation:   conf.GetString("regulation"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			DebugHost:          conf.GetString("serverDebugHost"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    conf.GetDuration("shutdownTimeout"),
			SessionIdleTimeout: conf.GetDuration("sessionIdleTimeout"),
			MaxUploadSize:      conf.GetString("maxUploadSize"),
			DisableReqLogs:     conf.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Storage: StorageConfig{
			Driver: conf.GetString("storageDriver"),
		},
		Recognition: RecognitionConfig{
			APIKey:  conf.GetString("recognitionAPIKey"),
			Model:   conf.GetString("recognitionModel"),
			BaseURL: conf.GetString("recognitionBaseURL"),
			Timeout: conf.GetDuration("recognitionTimeout"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no .env lookup, no external services.
func NewTestConfig() *Config {
	return &Config{
		AppName:    "GradeLedger",
		Env:        "TEST",
		Build:      "test",
		TestMode:   true,
		SecretKey:  "secret",
		Regulation: "2021",
		Server: ServerConfig{
			JWTExpirationDelta: 10 * time.Minute,
			ShutdownTimeout:    time.Second,
			SessionIdleTimeout: time.Minute,
			MaxUploadSize:      "64K",
			DisableReqLogs:     true,
		},
		Storage:     StorageConfig{Driver: "memory"},
		Recognition: RecognitionConfig{Model: "gpt-4o-mini", Timeout: 5 * time.Second},
	}
}
