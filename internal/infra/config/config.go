package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string
	LogLevel    string

	HTTPAddress   string
	GRPCAddress   string
	HTTPSCertFile string
	HTTPSKeyFile  string

	AllowedOrigins   []string
	AllowCredentials bool
	RateLimitRPS     int
	RateLimitBurst   int

	DatabaseURL string

	RedisAddress    string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	Issuer            string
	Audience          string

	PasswordPepper string
}

var required = []string{
	"DATABASE_URL",
	"JWT_PRIVATE_KEY_PATH",
	"JWT_PUBLIC_KEY_PATH",
	"JWT_ISSUER",
	"JWT_AUDIENCE",
	"REDIS_ADDRESS",
	"PASSWORD_PEPPER",
}

// storeRequired covers commands that only talk to the database.
var storeRequired = []string{
	"DATABASE_URL",
	"PASSWORD_PEPPER",
}

var defaults = map[string]any{
	"SERVICE_NAME":      "user-service",
	"LOG_LEVEL":         "debug",
	"HTTP_ADDRESS":      ":8080",
	"GRPC_ADDRESS":      ":50051",
	"ACCESS_TOKEN_TTL":  "5m",
	"REFRESH_TOKEN_TTL": "24h",
	"PROFILE_CACHE_TTL": "5m",
	"REDIS_DB":          0,
	"RATE_LIMIT_RPS":    50,
	"RATE_LIMIT_BURST":  100,
	"ALLOW_CREDENTIALS": false,
}

var optional = []string{
	"REDIS_PASSWORD",
	"ALLOWED_ORIGINS",
	"HTTPS_CERT_FILE",
	"HTTPS_KEY_FILE",
}

// Load reads config.json from the working directory (if present) and lets
// environment variables override it.
func Load() (*Config, error) {
	return load(required)
}

// LoadStore is Load for offline commands: token keys and Redis may be absent.
func LoadStore() (*Config, error) {
	return load(storeRequired)
}

func load(mustHave []string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range append(append([]string{}, required...), optional...) {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var missing []string
	for _, k := range mustHave {
		if strings.TrimSpace(v.GetString(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	accessTTL, err := duration(v, "ACCESS_TOKEN_TTL")
	if err != nil {
		return nil, err
	}
	refreshTTL, err := duration(v, "REFRESH_TOKEN_TTL")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := duration(v, "PROFILE_CACHE_TTL")
	if err != nil {
		return nil, err
	}
	origins, err := stringList(v.GetString("ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}

	return &Config{
		ServiceName:       v.GetString("SERVICE_NAME"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		HTTPAddress:       v.GetString("HTTP_ADDRESS"),
		GRPCAddress:       v.GetString("GRPC_ADDRESS"),
		HTTPSCertFile:     v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:      v.GetString("HTTPS_KEY_FILE"),
		AllowedOrigins:    origins,
		AllowCredentials:  v.GetBool("ALLOW_CREDENTIALS"),
		RateLimitRPS:      v.GetInt("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisAddress:      v.GetString("REDIS_ADDRESS"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		ProfileCacheTTL:   cacheTTL,
		JWTPrivateKeyPath: v.GetString("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  v.GetString("JWT_PUBLIC_KEY_PATH"),
		AccessTokenTTL:    accessTTL,
		RefreshTokenTTL:   refreshTTL,
		Issuer:            v.GetString("JWT_ISSUER"),
		Audience:          v.GetString("JWT_AUDIENCE"),
		PasswordPepper:    v.GetString("PASSWORD_PEPPER"),
	}, nil
}

// TLSEnabled reports whether both certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.HTTPSCertFile != "" && c.HTTPSKeyFile != ""
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// stringList accepts either a JSON array or a comma separated list.
func stringList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
