package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServicePort       string
	MetricsPort       string
	Environment       string
	PostgreSQLConfig  PostgreSQLConfig
	JWTSecret         string
	MidtransConfig    MidtransConfig
	MobileMoneyConfig MobileMoneyConfig
	KafkaConfig       KafkaConfig
	PaymentConfig     PaymentConfig
	TracingConfig     TracingConfig
	SystemActorID     int64
}

type PostgreSQLConfig struct {
	DBHost     string
	DBName     string
	DBPort     string
	DBUsername string
	DBPassword string
}

type MidtransConfig struct {
	ServerKey string
}

type MobileMoneyConfig struct {
	BaseURL string
	APIKey  string
}

type KafkaConfig struct {
	BrokerAddress string
	BrokerTopic   string
}

type PaymentConfig struct {
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

type TracingConfig struct {
	CollectorHost string
}

func CreateNewConfig() *Config {
	godotenv.Load(".env")

	conf := Config{
		ServicePort: os.Getenv("SERVICE_PORT"),
		MetricsPort: os.Getenv("METRICS_PORT"),
		Environment: os.Getenv("ENVIRONMENT"),
		PostgreSQLConfig: PostgreSQLConfig{
			DBHost:     os.Getenv("DB_HOST"),
			DBName:     os.Getenv("DB_NAME"),
			DBPort:     os.Getenv("DB_PORT"),
			DBUsername: os.Getenv("DB_USERNAME"),
			DBPassword: os.Getenv("DB_PASSWORD"),
		},
		KafkaConfig: KafkaConfig{
			BrokerAddress: os.Getenv("BROKER_ADDRESS"),
			BrokerTopic:   os.Getenv("BROKER_TOPIC"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		MidtransConfig: MidtransConfig{
			ServerKey: os.Getenv("MIDTRANS_SERVER_KEY"),
		},
		MobileMoneyConfig: MobileMoneyConfig{
			BaseURL: os.Getenv("MOBILE_MONEY_BASE_URL"),
			APIKey:  os.Getenv("MOBILE_MONEY_API_KEY"),
		},
		PaymentConfig: PaymentConfig{
			PollInterval:   getDurationEnv("PAYMENT_POLL_INTERVAL", 2*time.Second),
			ConfirmTimeout: getDurationEnv("PAYMENT_CONFIRM_TIMEOUT", 120*time.Second),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
		},
		SystemActorID: getInt64Env("SYSTEM_ACTOR_ID"),
	}

	return &conf
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// getInt64Env returns 0 when the variable is absent or malformed; callers
// that require the value must validate it at startup.
func getInt64Env(key string) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}

	return v
}
