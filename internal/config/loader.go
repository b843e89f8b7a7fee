// Package config loads the service configuration.
//
// Layers, highest precedence last:
//
//  1. optional .env file
//  2. optional YAML file
//  3. WEBSITES_-prefixed environment variables, where __ maps to "."
//     (WEBSITES_HTTP__LISTEN_ADDR sets http.listen_addr)
//
// Unset keys take the defaults from applyDefaults. The result is validated
// and cached in an atomic.Pointer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const envPrefix = "WEBSITES_"

var (
	current  atomic.Pointer[Config]
	validate = validator.New()
)

// Options selects the optional files read by Load.
type Options struct {
	EnvFile  string // defaults to ".env"
	YAMLFile string // skipped when empty or missing
}

// Load reads .env, YAML and env overrides, applies defaults, validates, and
// caches the Config.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	k := koanf.New(".")

	if opts.YAMLFile != "" {
		if _, err := os.Stat(opts.YAMLFile); err == nil {
			if err := k.Load(file.Provider(opts.YAMLFile), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", opts.YAMLFile, err)
			}
			zap.S().Debugw("config yaml loaded", "file", opts.YAMLFile)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, k)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"main_domain", cfg.MainDomain,
		"fallback_domain", cfg.FallbackDomain,
	)
	return &cfg, nil
}

// envKey maps WEBSITES_HTTP__LISTEN_ADDR to http.listen_addr.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

func applyDefaults(cfg *Config, k *koanf.Koanf) {
	setDefault(&cfg.HTTP.ListenAddr, ":8080")
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	setDefault(&cfg.HTTP.ShutdownTimeout, 15*time.Second)

	setDefault(&cfg.Database.MaxConns, 10)
	setDefault(&cfg.Database.MinConns, 2)
	if !k.Exists("database.migrate_on_start") {
		cfg.Database.MigrateOnStart = true
	}

	setDefault(&cfg.Auth.CacheTTL, 120*time.Second)

	setDefault(&cfg.Cloudflare.APIURL, "https://api.cloudflare.com/client/v4")
	setDefault(&cfg.Cloudflare.Timeout, 15*time.Second)

	setDefault(&cfg.DNS.ResolverURL, "https://cloudflare-dns.com/dns-query")
	setDefault(&cfg.DNS.Timeout, 10*time.Second)

	setDefault(&cfg.Images.Region, "auto")
	setDefault(&cfg.Images.MaxSize, 5<<20)

	setDefault(&cfg.Log.Dir, "logs")
	setDefault(&cfg.Log.Level, "info")
	if !k.Exists("log.console") {
		cfg.Log.Console = true
	}

	setDefault(&cfg.Scheduler.Spec, "0 * * * * *")
	setDefault(&cfg.Scheduler.Timeout, 50*time.Second)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Get returns the most recently loaded Config.
func Get() *Config { return current.Load() }
