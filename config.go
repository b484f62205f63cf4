package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Game configuration constants
const (
	// Server
	DefaultPort           = "10000"
	WebSocketPath         = "/ws"
	HealthPath            = "/health"
	DefaultMaxConnections = 500

	// Field
	DefaultFieldWidth  = 1000
	DefaultFieldHeight = 800

	// Food
	DefaultFoodTarget = 20
	FoodReward        = 10 // score per collected item
	FoodGrowth        = 1  // segments per collected item

	// Snake
	DefaultMaxSnakeLength = 3000 // ring capacity per player
	InitialLength         = 5
	InitialSpeed          = 5.0
	MinSpeed              = 1.0
	SpawnX                = 400.0
	SpawnY                = 300.0
	SpawnSpacing          = 20.0 // px between initial body segments
	DefaultSkin           = "green"
	DefaultName           = "Player"

	// Move throttle: max(MinMoveInterval, BaseMoveInterval - MoveIntervalStep*length)
	BaseMoveInterval = 200 * time.Millisecond
	MoveIntervalStep = 5 * time.Millisecond
	MinMoveInterval  = 50 * time.Millisecond

	// Liveness
	DefaultInactiveTimeout = 30 * time.Second
	DefaultReapInterval    = 60 * time.Second

	// Transport
	InboxSize       = 1024
	SendQueueSize   = 256
	WriteWait       = 10 * time.Second
	PongWait        = 60 * time.Second
	PingPeriod      = 25 * time.Second
	MaxMessageBytes = 16 << 10

	// Collaborators
	CollaboratorTimeout = 15 * time.Second
	AIMaxPromptBytes    = 2000
)

// Config holds the tunable runtime settings.
type Config struct {
	Port            string
	MaxConnections  int
	IPCooldown      time.Duration
	AllowedOrigins  []string
	FieldWidth      int
	FieldHeight     int
	FoodTarget      int
	MaxSnakeLength  int
	InactiveTimeout time.Duration
	ReapInterval    time.Duration
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Port:            DefaultPort,
		MaxConnections:  DefaultMaxConnections,
		FieldWidth:      DefaultFieldWidth,
		FieldHeight:     DefaultFieldHeight,
		FoodTarget:      DefaultFoodTarget,
		MaxSnakeLength:  DefaultMaxSnakeLength,
		InactiveTimeout: DefaultInactiveTimeout,
		ReapInterval:    DefaultReapInterval,
	}
}

// LoadConfig reads an optional .env file and applies environment overrides
// on top of DefaultConfig.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := DefaultConfig()
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if v := os.Getenv("SNAKE_ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SNAKE_MAX_CONNECTIONS", &cfg.MaxConnections},
		{"SNAKE_FIELD_WIDTH", &cfg.FieldWidth},
		{"SNAKE_FIELD_HEIGHT", &cfg.FieldHeight},
		{"SNAKE_FOOD_TARGET", &cfg.FoodTarget},
		{"SNAKE_MAX_LENGTH", &cfg.MaxSnakeLength},
	}
	for _, e := range ints {
		if err := envInt(e.key, e.dst); err != nil {
			return Config{}, err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SNAKE_IP_COOLDOWN", &cfg.IPCooldown},
		{"SNAKE_INACTIVE_TIMEOUT", &cfg.InactiveTimeout},
		{"SNAKE_REAP_INTERVAL", &cfg.ReapInterval},
	}
	for _, e := range durations {
		if err := envDuration(e.key, e.dst); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the game cannot run with.
func (c Config) Validate() error {
	switch {
	case c.FieldWidth <= 0 || c.FieldHeight <= 0:
		return fmt.Errorf("config: field must be positive, got %dx%d", c.FieldWidth, c.FieldHeight)
	case c.FoodTarget < 0:
		return fmt.Errorf("config: food target must not be negative, got %d", c.FoodTarget)
	case c.MaxSnakeLength < InitialLength:
		return fmt.Errorf("config: max snake length %d below initial length %d", c.MaxSnakeLength, InitialLength)
	case c.InactiveTimeout <= 0 || c.ReapInterval <= 0:
		return fmt.Errorf("config: inactive timeout and reap interval must be positive")
	case c.MaxConnections <= 0:
		return fmt.Errorf("config: max connections must be positive, got %d", c.MaxConnections)
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
