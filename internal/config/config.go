package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Server struct {
	Port          string   `mapstructure:"port"`
	AllowedOrigin []string `mapstructure:"allowed-origins"`
}

type API struct {
	BaseURL   string `mapstructure:"base-url"`
	TimeoutMs int    `mapstructure:"timeout-ms"`
}

type PaymentFlow struct {
	IntervalMs    int  `mapstructure:"interval-ms"`
	MaxAttempts   int  `mapstructure:"max-attempts"`
	MaxDurationMs int  `mapstructure:"max-duration-ms"`
	Authenticated bool `mapstructure:"authenticated"`

	// FailedIsPending keeps polling on FAILED instead of treating it as terminal.
	FailedIsPending bool `mapstructure:"failed-is-pending"`
}

func (f PaymentFlow) Interval() time.Duration {
	return time.Duration(f.IntervalMs) * time.Millisecond
}

func (f PaymentFlow) MaxDuration() time.Duration {
	return time.Duration(f.MaxDurationMs) * time.Millisecond
}

type Payment struct {
	Listing PaymentFlow `mapstructure:"listing"`
	Publish PaymentFlow `mapstructure:"publish"`
	Credits PaymentFlow `mapstructure:"credits"`
}

type Session struct {
	CookieName string `mapstructure:"cookie-name"`
	TTLMinutes int    `mapstructure:"ttl-minutes"`
	Secure     bool   `mapstructure:"secure"`
}

func (s Session) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

type Database struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"ssl-mode"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaWriter struct {
	BatchSize          int `mapstructure:"batch-size"`
	BatchTimeoutMs     int `mapstructure:"batch-timeout-ms"`
	MaxPublishAttempts int `mapstructure:"max-publish-attempts"`
	RetryDelayMs       int `mapstructure:"retry-delay-ms"`
}

type KafkaBroker struct {
	URL string `mapstructure:"url"`
}

type KafkaTopic struct {
	PaymentOutcomes string `mapstructure:"payment-outcomes"`
}

type Kafka struct {
	Writer KafkaWriter `mapstructure:"writer"`
	Broker KafkaBroker `mapstructure:"broker"`
	Topic  KafkaTopic  `mapstructure:"topic"`
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL   string `mapstructure:"url"`
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	API      API      `mapstructure:"api"`
	Payment  Payment  `mapstructure:"payment"`
	Session  Session  `mapstructure:"session"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Logs     Logs     `mapstructure:"logs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("api.timeout-ms", 10_000)

	v.SetDefault("payment.listing.interval-ms", 5000)
	v.SetDefault("payment.listing.authenticated", true)
	v.SetDefault("payment.publish.interval-ms", 3000)
	v.SetDefault("payment.publish.authenticated", true)
	v.SetDefault("payment.credits.interval-ms", 3000)
	v.SetDefault("payment.credits.authenticated", true)

	v.SetDefault("session.cookie-name", "hm_session")
	v.SetDefault("session.ttl-minutes", 7*24*60)

	v.SetDefault("kafka.writer.batch-size", 100)
	v.SetDefault("kafka.writer.batch-timeout-ms", 100)
	v.SetDefault("kafka.writer.max-publish-attempts", 3)
	v.SetDefault("kafka.writer.retry-delay-ms", 500)
	v.SetDefault("kafka.topic.payment-outcomes", "payment-outcomes")

	v.SetDefault("metrics.interval-ms", 10_000)
	v.SetDefault("logs.level", "info")
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("HM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}
