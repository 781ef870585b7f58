package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// HTTP
	Addr          string
	SessionName   string
	SessionSecret string
	// Storage
	Storage       string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Broadcast transport between nodes, "local" or "redis".
	PubSub string
	// Post detail
	PostAPIBase    string
	PostMinHold    time.Duration
	RequestTimeout time.Duration
	// Widgets optional yaml file overriding widget defaults.
	WidgetsFile string
}

// Language a selectable language in a widget file.
type Language struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Widgets are the per widget overrides read from WIDGETS_FILE. Empty values
// keep the widget defaults.
type Widgets struct {
	LangSelect struct {
		Languages  []Language `yaml:"languages"`
		StorageKey string     `yaml:"storage_key"`
	} `yaml:"langselect"`
	HashLang struct {
		Languages []Language `yaml:"languages"`
		Param     string     `yaml:"param"`
	} `yaml:"hashlang"`
	Calories struct {
		Buttons []string `yaml:"buttons"`
	} `yaml:"calories"`
	PostDetail struct {
		APIBase   string `yaml:"api_base"`
		MinHoldMS int    `yaml:"min_hold_ms"`
	} `yaml:"postdetail"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:            getEnv("ENV", "local"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Addr:           getEnv("ADDR", ":8080"),
		SessionName:    getEnv("SESSION_NAME", "answers"),
		SessionSecret:  getEnv("SESSION_SECRET", "weak-secret-change-me"),
		Storage:        getEnv("STORAGE", "memory"),
		SQLitePath:     getEnv("SQLITE_PATH", "answers.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        atoiDef(getEnv("REDIS_DB", "0"), 0),
		PubSub:         getEnv("PUBSUB", "local"),
		PostAPIBase:    getEnv("POST_API_BASE", "https://jsonplaceholder.typicode.com"),
		PostMinHold:    time.Duration(atoiDef(getEnv("POST_MIN_HOLD_MS", "500"), 500)) * time.Millisecond,
		RequestTimeout: time.Duration(atoiDef(getEnv("REQUEST_TIMEOUT_MS", "10000"), 10000)) * time.Millisecond,
		WidgetsFile:    getEnv("WIDGETS_FILE", ""),
	}
}

// LoadWidgets reads the widget overrides file. An empty path yields empty
// overrides.
func LoadWidgets(path string) (Widgets, error) {
	var w Widgets
	if path == "" {
		return w, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read widgets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("parse widgets file %s: %w", path, err)
	}
	return w, nil
}
