package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kumarlokesh/autocomplete/internal/normalize"
	"github.com/kumarlokesh/autocomplete/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g. AUTOCOMPLETE_SERVER_PORT.
const EnvPrefix = "AUTOCOMPLETE"

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Index  IndexConfig  `mapstructure:"index"`
	Search SearchConfig `mapstructure:"search"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds HTTP server related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// StoreConfig selects and configures the durable word store
type StoreConfig struct {
	Type  string      `mapstructure:"type"`
	WAL   WALConfig   `mapstructure:"wal"`
	Mongo MongoConfig `mapstructure:"mongo"`
}

// WALConfig holds configuration for the log-backed store
type WALConfig struct {
	Dir           string        `mapstructure:"dir"`
	SegmentSize   int64         `mapstructure:"segment_size"`
	Sync          bool          `mapstructure:"sync"`
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// MongoConfig holds configuration for the MongoDB store
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// IndexConfig holds prefix index configuration
type IndexConfig struct {
	MaxWordLength int    `mapstructure:"max_word_length"`
	Normalization string `mapstructure:"normalization"`
}

// SearchConfig holds search configuration
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
	CacheSize    int `mapstructure:"cache_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variables understood by earlier deployments of the service
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("store.mongo.uri", EnvPrefix+"_STORE_MONGO_URI", "MONGO_URI")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.type", string(store.TypeWAL))
	v.SetDefault("store.wal.dir", "./data/words")
	v.SetDefault("store.wal.segment_size", 64<<20) // 64MB
	v.SetDefault("store.wal.sync", true)
	v.SetDefault("store.wal.buffer_size", 4096)
	v.SetDefault("store.wal.flush_interval", "1s")
	v.SetDefault("store.mongo.uri", "")
	v.SetDefault("store.mongo.database", "autocomplete")
	v.SetDefault("store.mongo.collection", "words")
	v.SetDefault("store.mongo.timeout", "10s")

	// Index defaults
	v.SetDefault("index.max_word_length", 256)
	v.SetDefault("index.normalization", string(normalize.ModeNone))

	// Search defaults
	v.SetDefault("search.default_limit", 0)
	v.SetDefault("search.max_limit", 1000)
	v.SetDefault("search.cache_size", 1024)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Addr returns the host:port the server listens on
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreOptions converts the store section into store.Open options
func (c *StoreConfig) StoreOptions() store.Options {
	return store.Options{
		Type: store.Type(c.Type),
		WAL: store.WALOptions{
			Dir:           c.WAL.Dir,
			SegmentSize:   c.WAL.SegmentSize,
			Sync:          c.WAL.Sync,
			BufferSize:    c.WAL.BufferSize,
			FlushInterval: c.WAL.FlushInterval,
		},
		Mongo: store.MongoOptions{
			URI:        c.Mongo.URI,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
			Timeout:    c.Mongo.Timeout,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch store.Type(c.Store.Type) {
	case store.TypeMemory:
	case store.TypeWAL:
		if c.Store.WAL.Dir == "" {
			return fmt.Errorf("store.wal.dir is required for the wal store")
		}
	case store.TypeMongo:
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required for the mongo store")
		}
	default:
		return fmt.Errorf("unsupported store type: %q", c.Store.Type)
	}

	if c.Index.MaxWordLength <= 0 {
		return fmt.Errorf("index.max_word_length must be positive")
	}
	if store.Type(c.Store.Type) == store.TypeWAL && c.Index.MaxWordLength > store.MaxWALWordLength {
		return fmt.Errorf("index.max_word_length (%d) exceeds the wal store limit of %d", c.Index.MaxWordLength, store.MaxWALWordLength)
	}
	if _, err := normalize.ParseMode(c.Index.Normalization); err != nil {
		return err
	}

	if c.Search.DefaultLimit < 0 || c.Search.MaxLimit < 0 || c.Search.CacheSize < 0 {
		return fmt.Errorf("search limits and cache size cannot be negative")
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	return nil
}

// GetConfigPath returns the first config file found in the default locations:
// the current directory, ./configs/ and /etc/autocomplete/.
func GetConfigPath() (string, error) {
	configPaths := []string{
		".",
		"./configs",
		"/etc/autocomplete",
	}

	for _, path := range configPaths {
		configPath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", fmt.Errorf("config file not found in any of the default locations")
}
