package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mod-updater/loader"
	"mod-updater/logger"
)

const (
	DefaultUserAgent  = "mod-updater/dev (unknown-user)"
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultMaxUnits   = 290
	DefaultChunkSize  = 30
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a .env file and/or environment variables.
type Config struct {
	MinecraftVersion  string `mapstructure:"MINECRAFT_VERSION"`
	MinecraftLoader   string `mapstructure:"MINECRAFT_LOADER"`
	CurseforgeSupport bool   `mapstructure:"CURSEFORGE_SUPPORT"`
	CurseforgeAPIKey  string `mapstructure:"CURSEFORGE_API_KEY"`
	GithubToken       string `mapstructure:"GITHUB_TOKEN"`
	UserAgent         string `mapstructure:"USERAGENT"`
	ModsDir           string `mapstructure:"MODS_DIR"`
	OutputDir         string `mapstructure:"OUTPUT_DIR"`
	ProxyURL          string `mapstructure:"PROXY_URL"`
	ListenAddr        string `mapstructure:"LISTEN_ADDR"`
	MaxUnits          int    `mapstructure:"MAX_UNITS"`
	ChunkSize         int    `mapstructure:"CHUNK_SIZE"`

	ModrinthBaseURL   string `mapstructure:"MODRINTH_BASE_URL"`
	CurseforgeBaseURL string `mapstructure:"CURSEFORGE_BASE_URL"`
	GithubBaseURL     string `mapstructure:"GITHUB_BASE_URL"`
	MojangManifestURL string `mapstructure:"MOJANG_MANIFEST_URL"`

	DatabasePath string `mapstructure:"-"` // derived

	loaderDefaulted    bool
	curseforgeExplicit bool
}

var envKeys = []string{
	"MINECRAFT_VERSION", "MINECRAFT_LOADER", "CURSEFORGE_SUPPORT", "CURSEFORGE_API_KEY",
	"GITHUB_TOKEN", "USERAGENT", "MODS_DIR", "OUTPUT_DIR", "PROXY_URL", "LISTEN_ADDR",
	"MAX_UNITS", "CHUNK_SIZE", "MODRINTH_BASE_URL", "CURSEFORGE_BASE_URL",
	"GITHUB_BASE_URL", "MOJANG_MANIFEST_URL",
}

// LoadConfig reads configuration from a .env file in path and the
// environment.
func LoadConfig(path string) (Config, error) {
	var config Config

	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		logger.Log.Info("Config file (.env) not found, relying on environment variables.")
	} else if err != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", err)
	}

	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(key); err != nil {
			logger.Log.Warnw("Unable to bind env var", zap.String("key", key), zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.curseforgeExplicit = viper.GetString("CURSEFORGE_SUPPORT") != ""
	processConfigDefaults(&config)
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func processConfigDefaults(config *Config) {
	if config.MinecraftLoader == "" {
		config.MinecraftLoader = string(loader.Fabric)
		config.loaderDefaulted = true
	}
	config.MinecraftLoader = strings.ToLower(config.MinecraftLoader)
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
		logger.Log.Warn("USERAGENT not set in config or environment, using default.")
	}
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if config.MaxUnits <= 0 {
		config.MaxUnits = DefaultMaxUnits
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
}

func validateAndEnsureDirectories(config *Config) error {
	if config.ModsDir == "" {
		logger.Log.Error("MODS_DIR is not set")
		return fmt.Errorf("MODS_DIR is required")
	}
	if _, err := loader.Parse(config.MinecraftLoader); err != nil {
		return fmt.Errorf("invalid MINECRAFT_LOADER: %w", err)
	}
	if config.OutputDir == "" {
		config.OutputDir = filepath.Join(config.ModsDir, "updates")
	}

	for _, dir := range []string{config.ModsDir, config.OutputDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			logger.Log.Infow("Directory does not exist, creating it", zap.String("path", dir))
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory '%s': %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to check directory '%s': %w", dir, err)
		}
	}

	config.DatabasePath = filepath.Join(config.ModsDir, "mod-updater.db")
	return nil
}

// ApplyPreferences fills values the configuration left unset from stored
// preferences. Invalid stored loaders are ignored.
func (c *Config) ApplyPreferences(get func(key string) (string, bool)) {
	if v, ok := get("mc-version"); ok && c.MinecraftVersion == "" {
		c.MinecraftVersion = v
	}
	if v, ok := get("loader"); ok && c.loaderDefaulted {
		if l, err := loader.Parse(v); err == nil {
			c.MinecraftLoader = l.String()
		}
	}
	if v, ok := get("curseforge-support"); ok && !c.curseforgeExplicit {
		c.CurseforgeSupport = v == "true"
	}
}

// Loader returns the configured loader; LoadConfig has already validated it.
func (c Config) Loader() loader.Loader {
	l, err := loader.Parse(c.MinecraftLoader)
	if err != nil {
		return loader.Fabric
	}
	return l
}
