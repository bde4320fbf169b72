package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	RedisAddr string
	RedisPass string
	RedisDB   int

	JWTSecret string
	TokenTTL  time.Duration

	// GovernorAddress is the only identity allowed to stage and apply
	// economic parameter changes.
	GovernorAddress string

	LedgerPath string

	GatewayFee   uint64
	FulfillDelay time.Duration

	StartingBalance uint64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:       getEnv("REDIS_PASS", ""),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		GovernorAddress: os.Getenv("GOVERNOR_ADDRESS"),
		LedgerPath:      getEnv("LEDGER_PATH", "ledger.sqlite"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GovernorAddress == "" {
		return nil, fmt.Errorf("GOVERNOR_ADDRESS is required")
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}
	cfg.RedisDB = db

	fee, err := strconv.ParseUint(getEnv("GATEWAY_FEE", "2"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_FEE: %v", err)
	}
	cfg.GatewayFee = fee

	delayMs, err := strconv.Atoi(getEnv("FULFILL_DELAY_MS", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid FULFILL_DELAY_MS: %v", err)
	}
	cfg.FulfillDelay = time.Duration(delayMs) * time.Millisecond

	ttlMin, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "1440"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %v", err)
	}
	cfg.TokenTTL = time.Duration(ttlMin) * time.Minute

	balance, err := strconv.ParseUint(getEnv("STARTING_BALANCE", "10000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %v", err)
	}
	cfg.StartingBalance = balance

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
