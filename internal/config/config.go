package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia/wallet-ledger/internal/logger"
	"github.com/custodia/wallet-ledger/internal/security"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=wallet_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultMigrationsDir = "migrations"
const defaultHTTPAddr = ":8080"
const defaultMetricsAddr = ":9090"
const defaultChannelID = "LedgerApp"
const defaultChannelKey = "CustodiaKey001"
const defaultLockWaitTimeout = 5 * time.Second
const defaultPendingGracePeriod = 15 * time.Minute
const defaultSweepInterval = 5 * time.Minute

type Config struct {
	DatabaseDSN        string
	MigrationsDir      string
	HTTPAddr           string
	MetricsAddr        string
	ChannelID          string
	ChannelKey         string
	EncryptionKey      string
	LockWaitTimeout    time.Duration
	PendingGracePeriod time.Duration
	SweepInterval      time.Duration
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on process environment", nil)
	}

	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	migrationsDir := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR"))
	if migrationsDir == "" {
		migrationsDir = defaultMigrationsDir
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}

	metricsAddr := strings.TrimSpace(os.Getenv("METRICS_ADDR"))
	if metricsAddr == "" {
		metricsAddr = defaultMetricsAddr
	}

	channelID := strings.TrimSpace(os.Getenv("CHANNEL_ID"))
	if channelID == "" {
		channelID = defaultChannelID
	}

	channelKey := strings.TrimSpace(os.Getenv("CHANNEL_KEY"))
	if channelKey == "" {
		channelKey = defaultChannelKey
	}

	encryptionKey := strings.TrimSpace(os.Getenv("ENCRYPTION_KEY"))
	if encryptionKey == "" {
		generated, err := security.GenerateEncryptionKey()
		if err != nil {
			return Config{}, fmt.Errorf("generate encryption key: %w", err)
		}

		encryptionKey = generated
		logger.Info("ENCRYPTION_KEY not set, generated an ephemeral key; private keys sealed with it are unreadable after restart", nil)
	}

	lockWaitTimeout, err := durationEnv("LOCK_WAIT_TIMEOUT", defaultLockWaitTimeout)
	if err != nil {
		return Config{}, err
	}

	pendingGracePeriod, err := durationEnv("PENDING_GRACE_PERIOD", defaultPendingGracePeriod)
	if err != nil {
		return Config{}, err
	}

	sweepInterval, err := durationEnv("SWEEP_INTERVAL", defaultSweepInterval)
	if err != nil {
		return Config{}, err
	}

	return Config{
		DatabaseDSN:        normalizeConnectionString(conn),
		MigrationsDir:      migrationsDir,
		HTTPAddr:           httpAddr,
		MetricsAddr:        metricsAddr,
		ChannelID:          channelID,
		ChannelKey:         channelKey,
		EncryptionKey:      encryptionKey,
		LockWaitTimeout:    lockWaitTimeout,
		PendingGracePeriod: pendingGracePeriod,
		SweepInterval:      sweepInterval,
	}, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: duration must be positive", key)
	}

	return d, nil
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
