package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env     string `yaml:"app_env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres | redis | jetstream (con cluster.mode=embedded se usa raft)
		Driver     string `yaml:"driver"`
		DSN        string `yaml:"dsn"`
		MaxRetries int    `yaml:"max_retries"`
		Postgres   struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		NATS struct {
			URL      string `yaml:"url"`
			Bucket   string `yaml:"bucket"`
			History  int    `yaml:"history"`
			Replicas int    `yaml:"replicas"`
		} `yaml:"nats"`
	} `yaml:"storage"`

	Cache struct {
		Enabled bool   `yaml:"enabled"`
		Kind    string `yaml:"kind"` // memory | redis
		TTL     string `yaml:"ttl"`
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Cluster struct {
		Mode            string            `yaml:"mode" json:"mode"` // off | embedded
		NodeID          string            `yaml:"node_id" json:"nodeId"`
		RaftAddr        string            `yaml:"raft_addr" json:"raftAddr"`
		RaftDir         string            `yaml:"raft_dir" json:"raftDir"`
		Nodes           map[string]string `yaml:"nodes" json:"nodes"`                      // nodeID -> host:port (raft)
		LeaderRedirects map[string]string `yaml:"leader_redirects" json:"leaderRedirects"` // nodeID -> baseURL
		Bootstrap       bool              `yaml:"bootstrap" json:"bootstrap"`
		JoinOnly        bool              `yaml:"join_only" json:"joinOnly"`
		ApplyTimeout    string            `yaml:"apply_timeout" json:"applyTimeout"`
		SnapshotEvery   int               `yaml:"snapshot_every" json:"snapshotEvery"`

		RaftTLSEnable     bool   `yaml:"raft_tls_enable" json:"raftTlsEnable"`
		RaftTLSCertFile   string `yaml:"raft_tls_cert_file" json:"raftTlsCertFile"`
		RaftTLSKeyFile    string `yaml:"raft_tls_key_file" json:"raftTlsKeyFile"`
		RaftTLSCAFile     string `yaml:"raft_tls_ca_file" json:"raftTlsCaFile"`
		RaftTLSServerName string `yaml:"raft_tls_server_name" json:"raftTlsServerName"`
	} `yaml:"cluster" json:"cluster"`

	Auth struct {
		// JWTSecret vacío deshabilita la autenticación de las rutas de documentos.
		JWTSecret string `yaml:"jwt_secret"`
		JWTIssuer string `yaml:"jwt_issuer"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`

	Limits struct {
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"limits"`

	// Rate limiting por cliente (subject del token o IP) sobre la API de documentos.
	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Kind    string `yaml:"kind"` // memory | redis
		Max     int    `yaml:"max"`
		Window  string `yaml:"window"`
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"rate"`
}

// Load lee el YAML en path, aplica defaults y overrides de entorno, y valida.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.finish(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadOrDefault es como Load pero un archivo inexistente (o path vacío) no es error:
// se usan defaults + entorno.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		c, err := Load(path)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return c, err
		}
	}
	var c Config
	if err := c.finish("."); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) finish(baseDir string) error {
	c.applyDefaults()
	c.applyEnvOverrides()

	if p := strings.TrimSpace(c.Cluster.RaftDir); p != "" && !filepath.IsAbs(p) {
		c.Cluster.RaftDir = filepath.Clean(filepath.Join(baseDir, p))
	}
	return c.Validate()
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "docstore"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MaxRetries == 0 {
		c.Storage.MaxRetries = 32
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "30s"
	}
	if strings.TrimSpace(c.Cluster.Mode) == "" {
		c.Cluster.Mode = "off"
	}
	if c.Cluster.RaftDir == "" {
		c.Cluster.RaftDir = "./data/raft"
	}
	if c.Cluster.ApplyTimeout == "" {
		c.Cluster.ApplyTimeout = "5s"
	}
	if c.Cluster.Nodes == nil {
		c.Cluster.Nodes = map[string]string{}
	}
	if c.Cluster.LeaderRedirects == nil {
		c.Cluster.LeaderRedirects = map[string]string{}
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "docstore"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "1h"
	}
	if c.Limits.MaxBodyBytes == 0 {
		c.Limits.MaxBodyBytes = 1 << 20
	}
	if c.Rate.Kind == "" {
		c.Rate.Kind = "memory"
	}
	if c.Rate.Max == 0 {
		c.Rate.Max = 600
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.Redis.Prefix == "" {
		c.Rate.Redis.Prefix = "rl:"
	}
}

// ───── env helpers ─────

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvInt64(key string) (int64, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// parse env of form "k1=v1<sep>k2=v2" into map
func parseKVList(s, sep string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}
	}
	items := strings.Split(s, sep)
	out := make(map[string]string, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		// split at first '='
		if i := strings.IndexRune(it, '='); i > 0 {
			k := strings.TrimSpace(it[:i])
			v := strings.TrimSpace(it[i+1:])
			if k != "" && v != "" {
				out[k] = v
			}
		}
	}
	return out
}

func getEnvKVList(key, sep string) (map[string]string, bool) {
	if s, ok := getEnvStr(key); ok {
		return parseKVList(s, sep), true
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVICE_VERSION"); ok {
		c.App.Version = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_RETRIES"); ok {
		c.Storage.MaxRetries = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
		if c.Cache.Redis.Addr == "" {
			c.Cache.Redis.Addr = v
		}
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Storage.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Storage.Redis.Prefix = v
	}
	if v, ok := getEnvStr("NATS_URL"); ok {
		c.Storage.NATS.URL = v
	}
	if v, ok := getEnvStr("NATS_BUCKET"); ok {
		c.Storage.NATS.Bucket = v
	}

	if v, ok := getEnvBool("CACHE_ENABLED"); ok {
		c.Cache.Enabled = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}

	// ───── Cluster ─────
	// CLUSTER_MODE=off|embedded (default off)
	if v, ok := getEnvStr("CLUSTER_MODE"); ok {
		c.Cluster.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("CLUSTER_NODE_ID"); ok {
		c.Cluster.NodeID = strings.TrimSpace(v)
	}
	if v, ok := getEnvStr("CLUSTER_RAFT_ADDR"); ok {
		c.Cluster.RaftAddr = strings.TrimSpace(v)
	}
	if v, ok := getEnvStr("CLUSTER_RAFT_DIR"); ok {
		c.Cluster.RaftDir = strings.TrimSpace(v)
	}
	if v, ok := getEnvBool("CLUSTER_BOOTSTRAP"); ok {
		c.Cluster.Bootstrap = v
	}
	if v, ok := getEnvBool("CLUSTER_JOIN_ONLY"); ok {
		c.Cluster.JoinOnly = v
	}
	// CLUSTER_NODES="n1=127.0.0.1:8201;n2=127.0.0.1:8202"
	if m, ok := getEnvKVList("CLUSTER_NODES", ";"); ok {
		for k, v := range m {
			c.Cluster.Nodes[k] = v
		}
	}
	// LEADER_REDIRECTS="n1=http://127.0.0.1:8081;n2=http://127.0.0.1:8082"
	if m, ok := getEnvKVList("LEADER_REDIRECTS", ";"); ok {
		for k, v := range m {
			c.Cluster.LeaderRedirects[k] = v
		}
	}
	if v, ok := getEnvInt("RAFT_SNAPSHOT_EVERY"); ok {
		c.Cluster.SnapshotEvery = v
	}

	// Raft TLS (optional)
	if v, ok := getEnvBool("RAFT_TLS_ENABLE"); ok {
		c.Cluster.RaftTLSEnable = v
	}
	if v, ok := getEnvStr("RAFT_TLS_CERT_FILE"); ok {
		c.Cluster.RaftTLSCertFile = v
	}
	if v, ok := getEnvStr("RAFT_TLS_KEY_FILE"); ok {
		c.Cluster.RaftTLSKeyFile = v
	}
	if v, ok := getEnvStr("RAFT_TLS_CA_FILE"); ok {
		c.Cluster.RaftTLSCAFile = v
	}
	if v, ok := getEnvStr("RAFT_TLS_SERVER_NAME"); ok {
		c.Cluster.RaftTLSServerName = v
	}

	if v, ok := getEnvStr("AUTH_JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("AUTH_JWT_ISSUER"); ok {
		c.Auth.JWTIssuer = v
	}
	if v, ok := getEnvInt64("LIMITS_MAX_BODY_BYTES"); ok {
		c.Limits.MaxBodyBytes = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_KIND"); ok {
		c.Rate.Kind = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvInt("RATE_MAX"); ok {
		c.Rate.Max = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvStr("RATE_REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if c.Rate.Redis.Addr == "" {
		c.Rate.Redis.Addr = c.Storage.Redis.Addr
	}
}

var nodeIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Validate verifica drivers, modos y duraciones.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres", "redis", "jetstream":
	default:
		return fmt.Errorf("config: storage.driver %q not supported (memory|postgres|redis|jetstream)", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return errors.New("config: storage.dsn is required for postgres")
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: cache.kind %q not supported (memory|redis)", c.Cache.Kind)
	}

	switch c.Rate.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: rate.kind %q not supported (memory|redis)", c.Rate.Kind)
	}
	if c.Rate.Enabled && c.Rate.Max <= 0 {
		return errors.New("config: rate.max must be positive")
	}

	switch c.Cluster.Mode {
	case "off":
	case "embedded":
		if !nodeIDPattern.MatchString(c.Cluster.NodeID) {
			return fmt.Errorf("config: cluster.node_id %q is invalid", c.Cluster.NodeID)
		}
		if strings.TrimSpace(c.Cluster.RaftAddr) == "" {
			return errors.New("config: cluster.raft_addr is required in embedded mode")
		}
		if c.Cluster.RaftTLSEnable && (c.Cluster.RaftTLSCertFile == "" || c.Cluster.RaftTLSKeyFile == "" || c.Cluster.RaftTLSCAFile == "") {
			return errors.New("config: raft TLS requires cert, key and CA files")
		}
	default:
		return fmt.Errorf("config: cluster.mode %q not supported (off|embedded)", c.Cluster.Mode)
	}

	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"cache.ttl":               c.Cache.TTL,
		"cluster.apply_timeout":   c.Cluster.ApplyTimeout,
		"auth.token_ttl":          c.Auth.TokenTTL,
		"rate.window":             c.Rate.Window,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.Limits.MaxBodyBytes < 0 {
		return errors.New("config: limits.max_body_bytes must be positive")
	}
	return nil
}

// Duration parsea una duración ya validada por Validate.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}
