// Package config handles application configuration.
// Configuration is loaded from environment variables with sensible defaults,
// or from a single JSON document via FromJSON for deployments that inject
// config as one blob (e.g. a mounted ConfigMap) rather than discrete vars.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config holds every configuration key named in the external interface.
type Config struct {
	// Server settings
	HTTPPort int
	WSPort   int

	// Concurrency timeouts
	ThreadLockTimeout    time.Duration // timeout.thread_lock_usec
	LDAPRequestTimeout   time.Duration // timeout.ldap_request_usec
	AuthSnapshotInterval time.Duration // timeout.auth_snapshot_seconds, 0 disables
	StateSnapshotInterval time.Duration // timeout.state_snapshot_seconds, 0 disables

	// Password KDF parameters
	PasswordWorkfactor int // scrypt N (as a power of two exponent)
	PasswordBlocksize  int // scrypt r
	PasswordParallel   int // scrypt p
	PasswordLength     int // scrypt keyLen

	// Persistence
	Path string // persistence root, default /opt/vocsdb

	// Cluster broadcast (optional)
	ClusterManager bool
	ClusterSocket  string

	// LDAP-backed authentication (optional). When enabled, login and
	// update_password defer to the directory instead of local hashes.
	LDAPEnabled  bool
	LDAPBindHost string

	// Admin HTTP surface
	AdminHTTPPort  int
	AdminAuthToken string

	// JWT session-token signing
	JWTSecretKey string

	// Database (optional postgres snapshot backend)
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"

	Environment string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		WSPort:   getEnvInt("WS_PORT", 9090),

		ThreadLockTimeout:     getEnvMicros("TIMEOUT_THREAD_LOCK_USEC", 100_000),
		LDAPRequestTimeout:    getEnvMicros("TIMEOUT_LDAP_REQUEST_USEC", 5_000_000),
		AuthSnapshotInterval:  getEnvSeconds("TIMEOUT_AUTH_SNAPSHOT_SECONDS", 0),
		StateSnapshotInterval: getEnvSeconds("TIMEOUT_STATE_SNAPSHOT_SECONDS", 0),

		PasswordWorkfactor: getEnvInt("PASSWORD_WORKFACTOR", 15), // N = 1<<15
		PasswordBlocksize:  getEnvInt("PASSWORD_BLOCKSIZE", 8),
		PasswordParallel:   getEnvInt("PASSWORD_PARALLEL", 1),
		PasswordLength:     getEnvInt("PASSWORD_LENGTH", 32),

		Path: getEnv("PATH_VOCSDB", "/opt/vocsdb"),

		ClusterManager: getEnvBool("CLUSTER_MANAGER", false),
		ClusterSocket:  getEnv("CLUSTER_SOCKET", ""),

		LDAPEnabled:  getEnvBool("LDAP_ENABLED", false),
		LDAPBindHost: getEnv("LDAP_BIND_HOST", ""),

		AdminHTTPPort:  getEnvInt("ADMIN_HTTP_PORT", 8081),
		AdminAuthToken: getEnv("ADMIN_AUTH_TOKEN", ""),

		JWTSecretKey: getEnv("JWT_SECRET_KEY", "change-me-in-production-this-is-not-secure"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Environment: getEnv("ENVIRONMENT", "dev"),
	}
}

// jsonConfig mirrors Config with the dotted key names used in the external
// interface, for deployments that hand the whole config as one document.
type jsonConfig struct {
	Timeout struct {
		ThreadLockUsec        int64 `json:"thread_lock_usec"`
		LDAPRequestUsec       int64 `json:"ldap_request_usec"`
		AuthSnapshotSeconds   int64 `json:"auth_snapshot_seconds"`
		StateSnapshotSeconds  int64 `json:"state_snapshot_seconds"`
	} `json:"timeout"`
	Password struct {
		Workfactor int `json:"workfactor"`
		Blocksize  int `json:"blocksize"`
		Parallel   int `json:"parallel"`
		Length     int `json:"length"`
	} `json:"password"`
	Path    string `json:"path"`
	Cluster struct {
		Manager bool   `json:"manager"`
		Socket  string `json:"socket"`
	} `json:"cluster"`
}

// FromJSON builds a Config from a single JSON document shaped like the
// external interface's configuration keys, falling back to Load()'s
// defaults for anything the document omits, except the two snapshot
// intervals and cluster.manager: those are always taken from the document,
// so an omitted value reads as 0 or false.
func FromJSON(data []byte) (*Config, error) {
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return nil, err
	}
	c := Load()
	if jc.Timeout.ThreadLockUsec > 0 {
		c.ThreadLockTimeout = time.Duration(jc.Timeout.ThreadLockUsec) * time.Microsecond
	}
	if jc.Timeout.LDAPRequestUsec > 0 {
		c.LDAPRequestTimeout = time.Duration(jc.Timeout.LDAPRequestUsec) * time.Microsecond
	}
	c.AuthSnapshotInterval = time.Duration(jc.Timeout.AuthSnapshotSeconds) * time.Second
	c.StateSnapshotInterval = time.Duration(jc.Timeout.StateSnapshotSeconds) * time.Second
	if jc.Password.Workfactor > 0 {
		c.PasswordWorkfactor = jc.Password.Workfactor
	}
	if jc.Password.Blocksize > 0 {
		c.PasswordBlocksize = jc.Password.Blocksize
	}
	if jc.Password.Parallel > 0 {
		c.PasswordParallel = jc.Password.Parallel
	}
	if jc.Password.Length > 0 {
		c.PasswordLength = jc.Password.Length
	}
	if jc.Path != "" {
		c.Path = jc.Path
	}
	c.ClusterManager = jc.Cluster.Manager
	if jc.Cluster.Socket != "" {
		c.ClusterSocket = jc.Cluster.Socket
	}
	return c, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "dev" || c.Environment == "sandbox"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvMicros(key string, defaultValue int64) time.Duration {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(i) * time.Microsecond
		}
	}
	return time.Duration(defaultValue) * time.Microsecond
}

func getEnvSeconds(key string, defaultValue int64) time.Duration {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return time.Duration(defaultValue) * time.Second
}
