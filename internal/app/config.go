package app

import (
	"net"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (RATES_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"Server listen address"`
	Host        string `flag:"H" usage:"Listen host, overrides the host part of addr"`
	Port        string `flag:"P" usage:"Listen port, overrides the port part of addr"`
	DatabaseURL string `usage:"PostgreSQL connection URL (RATES_DATABASE_URL or DATABASE_URL); empty selects the in-memory store" flag:"database-url"`
	RatesURL    string `usage:"Upstream rates feed URL (RATES_RATES_URL or RATES_URL)" flag:"rates-url"`
	Crawler     CrawlerConfig
	History     HistoryConfig
	WS          WSConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CrawlerConfig controls the upstream polling loop.
type CrawlerConfig struct {
	Period  time.Duration `default:"1s" usage:"Feed poll period"`
	Timeout time.Duration `default:"5s" usage:"Feed request timeout"`
}

// HistoryConfig controls rate history retention.
type HistoryConfig struct {
	Window time.Duration `default:"30m" usage:"How much history to keep per asset"`
}

// WSConfig controls websocket connection handling.
type WSConfig struct {
	SendBuffer     int `default:"100" usage:"Per-subscriber queue size" flag:"ws-send-buffer"`
	MaxConnections int `default:"0"   usage:"Max concurrent websocket connections, 0 disables the cap" flag:"ws-max-connections"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RATES",
		Files:     []string{"config.yaml", "/etc/assetsrates/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	return &cfg, nil
}

// applyPlatformDefaults maps standard environment variable names like
// DATABASE_URL, RATES_URL and PORT onto the RATES_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RatesURL == "" {
		if v := os.Getenv("RATES_URL"); v != "" {
			c.RatesURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Host != "" || c.Port != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			host, port = "0.0.0.0", "8080"
		}
		if c.Host != "" {
			host = c.Host
		}
		if c.Port != "" {
			port = c.Port
		}
		c.Addr = net.JoinHostPort(host, port)
	}
}
