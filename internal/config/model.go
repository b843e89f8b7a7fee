package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Database holds the PostgreSQL connection settings.
type Database struct {
	URL            string `koanf:"url"              validate:"required"`
	MaxConns       int32  `koanf:"max_conns"        validate:"gte=1"`
	MinConns       int32  `koanf:"min_conns"        validate:"gte=0,ltefield=MaxConns"`
	MigrateOnStart bool   `koanf:"migrate_on_start"`
}

// Auth configures bearer token verification. JWKSHost overrides the Host
// header of the JWKS request for identity providers reached over a private
// network.
type Auth struct {
	JWKSURL  string        `koanf:"jwks_url"  validate:"required,url"`
	JWKSHost string        `koanf:"jwks_host"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gt=0"`
}

// Cloudflare holds CDN API credentials for the platform zone.
type Cloudflare struct {
	APIURL   string        `koanf:"api_url"   validate:"required,url"`
	ZoneID   string        `koanf:"zone_id"   validate:"required"`
	APIToken string        `koanf:"api_token" validate:"required"`
	Timeout  time.Duration `koanf:"timeout"   validate:"gt=0"`
}

// DNS configures the DNS-over-HTTPS resolver.
type DNS struct {
	ResolverURL string        `koanf:"resolver_url" validate:"required,url"`
	Timeout     time.Duration `koanf:"timeout"      validate:"gt=0"`
}

// Zitadel holds the management API settings for OIDC applications.
type Zitadel struct {
	APIURL    string `koanf:"api_url"    validate:"required,url"`
	APIToken  string `koanf:"api_token"  validate:"required"`
	ProjectID string `koanf:"project_id" validate:"required"`
}

// Images configures logo storage.
type Images struct {
	Bucket          string `koanf:"bucket"            validate:"required"`
	Endpoint        string `koanf:"endpoint"          validate:"omitempty,url"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	BaseURL         string `koanf:"base_url"          validate:"required,url"`
	Region          string `koanf:"region"`
	MaxSize         int64  `koanf:"max_size"          validate:"gt=0"`
}

// Redis configures the event publisher.
type Redis struct {
	URL string `koanf:"url" validate:"required"`
}

// Log configures the file logger.
type Log struct {
	Dir     string `koanf:"dir"`
	Console bool   `koanf:"console"`
	Level   string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Scheduler configures the pending domain sweep.
type Scheduler struct {
	Spec    string        `koanf:"spec"    validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Config is the immutable aggregate returned by Load and cached in an
// atomic.Pointer.
type Config struct {
	HTTP           HTTP       `koanf:"http"`
	Database       Database   `koanf:"database"`
	MainDomain     string     `koanf:"main_domain"     validate:"required,fqdn"`
	FallbackDomain string     `koanf:"fallback_domain" validate:"required,fqdn"`
	Auth           Auth       `koanf:"auth"`
	Cloudflare     Cloudflare `koanf:"cloudflare"`
	DNS            DNS        `koanf:"dns"`
	Zitadel        Zitadel    `koanf:"zitadel"`
	Images         Images     `koanf:"images"`
	Redis          Redis      `koanf:"redis"`
	Log            Log        `koanf:"log"`
	Scheduler      Scheduler  `koanf:"scheduler"`
}
