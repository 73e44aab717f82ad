package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full startup configuration. It is loaded once in main
// and never mutated afterwards.
type Config struct {
	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Topics
	CommandTopic string
	StatusTopic  string

	// Motor
	BackendType         string
	DefaultSpeedPercent int
	MaxSpeedPercent     int

	// Safety
	HeartbeatTimeout     time.Duration
	HeartbeatMonitoring  bool
	EmergencyStopEnabled bool
	AutoStopOnDisconnect bool

	// Redis (optional status cache)
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// HTTP
	HTTPAddr string

	// Application
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment (with .env support) and
// validates the values the safety core depends on.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	defaultSpeed, err := getInt("DEFAULT_SPEED_PERCENT", 50)
	if err != nil {
		return nil, err
	}
	maxSpeed, err := getInt("MAX_SPEED_PERCENT", 100)
	if err != nil {
		return nil, err
	}
	timeoutSec, err := getInt("HEARTBEAT_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "motor-controller"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		CommandTopic: getEnv("COMMAND_TOPIC", "hov/motor/command"),
		StatusTopic:  getEnv("STATUS_TOPIC", "hov/motor/status"),

		BackendType:         getEnv("MOTOR_BACKEND", "diffdrive"),
		DefaultSpeedPercent: defaultSpeed,
		MaxSpeedPercent:     maxSpeed,

		HeartbeatTimeout:     time.Duration(timeoutSec) * time.Second,
		HeartbeatMonitoring:  getBool("HEARTBEAT_MONITORING", true),
		EmergencyStopEnabled: getBool("EMERGENCY_STOP_ENABLED", true),
		AutoStopOnDisconnect: getBool("AUTO_STOP_ON_DISCONNECT", true),

		RedisEnabled:  getBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultSpeedPercent < 0 || c.DefaultSpeedPercent > 100 {
		return fmt.Errorf("DEFAULT_SPEED_PERCENT must be within [0,100], got %d", c.DefaultSpeedPercent)
	}
	if c.MaxSpeedPercent < 1 || c.MaxSpeedPercent > 100 {
		return fmt.Errorf("MAX_SPEED_PERCENT must be within [1,100], got %d", c.MaxSpeedPercent)
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("HEARTBEAT_TIMEOUT_SECONDS must be positive, got %v", c.HeartbeatTimeout)
	}
	if c.CommandTopic == "" || c.StatusTopic == "" {
		return fmt.Errorf("COMMAND_TOPIC and STATUS_TOPIC must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, value)
	}
	return parsed, nil
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
