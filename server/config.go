package server

import (
	"github.com/kbukum/streamdiar/server/middleware"
	"github.com/kbukum/streamdiar/validation"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds
	MaxBodySize  string `mapstructure:"max_body_size"` // e.g. "10MB"
	// MaxSessions bounds the number of concurrent diarization sessions.
	MaxSessions int `mapstructure:"max_sessions"`
	// SessionTTL evicts sessions idle for longer than this many seconds. Zero disables eviction.
	SessionTTL int                   `mapstructure:"session_ttl"`
	CORS       middleware.CORSConfig `mapstructure:"cors"`
	Auth       middleware.AuthConfig `mapstructure:"auth"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = 64
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if c.Auth.Enabled() && len(c.Auth.SkipPaths) == 0 {
		c.Auth.SkipPaths = []string{"/health"}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validation.New().
		InRange("server.port", float64(c.Port), 0, 65535).
		AtLeast("server.read_timeout", c.ReadTimeout, 0).
		AtLeast("server.write_timeout", c.WriteTimeout, 0).
		AtLeast("server.idle_timeout", c.IdleTimeout, 0).
		AtLeast("server.max_sessions", c.MaxSessions, 1).
		AtLeast("server.session_ttl", c.SessionTTL, 0).
		Validate(); err != nil {
		return err
	}
	return nil
}

// MaxBodyBytes is MaxBodySize in bytes.
func (c *Config) MaxBodyBytes() int64 {
	return middleware.ParseSize(c.MaxBodySize, 10*1024*1024)
}
