package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	// Node identifica esta réplica en los mensajes de replicación. Vacío = uuid al arrancar.
	Node struct {
		ID string `yaml:"id"`
	} `yaml:"node"`

	Bundle struct {
		CurrentDir   string `yaml:"current_dir"`
		IncomingDir  string `yaml:"incoming_dir"`
		UpdateLogDir string `yaml:"update_log_dir"`
		// Retention: cantidad de candidatos conservados. 0 = historial deshabilitado.
		Retention     int           `yaml:"retention"`
		CheckInterval time.Duration `yaml:"check_interval"`
	} `yaml:"bundle"`

	Timing struct {
		AutomaticReload  bool `yaml:"automatic_reload"`
		AutomaticRestart bool `yaml:"automatic_restart"`
		SkipNewVersions  bool `yaml:"skip_new_versions"`
		RejectWarnings   bool `yaml:"reject_warnings"`
		// CanSkip es *bool para distinguir "no seteado" (default true) de false.
		CanSkip *bool `yaml:"can_skip"`
	} `yaml:"timing"`

	Replication struct {
		// memory | redis | http
		Mode      string `yaml:"mode"`
		Channel   string `yaml:"channel"`
		QueueSize int    `yaml:"queue_size"`
		Redis     struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		HTTP struct {
			// Peers: URL base de cada réplica (sin la propia).
			Peers   []string      `yaml:"peers"`
			Secret  string        `yaml:"secret"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"http"`
	} `yaml:"replication"`

	Apply struct {
		ReloadCommand  []string      `yaml:"reload_command"`
		RestartCommand []string      `yaml:"restart_command"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"apply"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`
}

// Modos de replicación.
const (
	ReplicationMemory = "memory"
	ReplicationRedis  = "redis"
	ReplicationHTTP   = "http"
)

// Load lee path (si existe), aplica defaults, overrides de entorno y valida.
// Un path vacío o inexistente arranca solo con defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Rutas relativas se resuelven respecto al directorio del YAML
	if path != "" {
		base := filepath.Dir(path)
		for _, p := range []*string{&c.Bundle.CurrentDir, &c.Bundle.IncomingDir, &c.Bundle.UpdateLogDir} {
			if !filepath.IsAbs(*p) {
				*p = filepath.Clean(filepath.Join(base, *p))
			}
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Bundle.CurrentDir == "" {
		c.Bundle.CurrentDir = "./data/bundle/current"
	}
	if c.Bundle.IncomingDir == "" {
		c.Bundle.IncomingDir = "./data/bundle/incoming"
	}
	if c.Bundle.UpdateLogDir == "" {
		c.Bundle.UpdateLogDir = "./data/bundle/update-log"
	}
	if c.Bundle.CheckInterval == 0 {
		c.Bundle.CheckInterval = time.Minute
	}
	if c.Timing.CanSkip == nil {
		v := true
		c.Timing.CanSkip = &v
	}
	if strings.TrimSpace(c.Replication.Mode) == "" {
		c.Replication.Mode = ReplicationMemory
	}
	if c.Replication.Channel == "" {
		c.Replication.Channel = "bundlekeeper:replication"
	}
	if c.Replication.QueueSize == 0 {
		c.Replication.QueueSize = 256
	}
	if c.Replication.HTTP.Timeout == 0 {
		c.Replication.HTTP.Timeout = 5 * time.Second
	}
	if c.Apply.Timeout == 0 {
		c.Apply.Timeout = 5 * time.Minute
	}
}

// ---- Helpers env ----

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
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// getEnvArgs parte un comando por espacios ("systemctl reload jenkins").
func getEnvArgs(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		return strings.Fields(s), true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("NODE_ID"); ok {
		c.Node.ID = v
	}

	// BUNDLE
	if v, ok := getEnvStr("BUNDLE_CURRENT_DIR"); ok {
		c.Bundle.CurrentDir = v
	}
	if v, ok := getEnvStr("BUNDLE_INCOMING_DIR"); ok {
		c.Bundle.IncomingDir = v
	}
	if v, ok := getEnvStr("BUNDLE_UPDATE_LOG_DIR"); ok {
		c.Bundle.UpdateLogDir = v
	}
	if v, ok := getEnvInt("BUNDLE_RETENTION"); ok {
		c.Bundle.Retention = v
	}
	if v, ok := getEnvDur("BUNDLE_CHECK_INTERVAL"); ok {
		c.Bundle.CheckInterval = v
	}

	// TIMING
	if v, ok := getEnvBool("TIMING_AUTOMATIC_RELOAD"); ok {
		c.Timing.AutomaticReload = v
	}
	if v, ok := getEnvBool("TIMING_AUTOMATIC_RESTART"); ok {
		c.Timing.AutomaticRestart = v
	}
	if v, ok := getEnvBool("TIMING_SKIP_NEW_VERSIONS"); ok {
		c.Timing.SkipNewVersions = v
	}
	if v, ok := getEnvBool("TIMING_REJECT_WARNINGS"); ok {
		c.Timing.RejectWarnings = v
	}
	if v, ok := getEnvBool("TIMING_CAN_SKIP"); ok {
		c.Timing.CanSkip = &v
	}

	// REPLICATION
	if v, ok := getEnvStr("REPLICATION_MODE"); ok {
		c.Replication.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("REPLICATION_CHANNEL"); ok {
		c.Replication.Channel = v
	}
	if v, ok := getEnvInt("REPLICATION_QUEUE_SIZE"); ok {
		c.Replication.QueueSize = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Replication.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Replication.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Replication.Redis.DB = v
	}
	if v, ok := getEnvCSV("REPLICATION_HTTP_PEERS"); ok {
		c.Replication.HTTP.Peers = v
	}
	if v, ok := getEnvStr("REPLICATION_HTTP_SECRET"); ok {
		c.Replication.HTTP.Secret = v
	}
	if v, ok := getEnvDur("REPLICATION_HTTP_TIMEOUT"); ok {
		c.Replication.HTTP.Timeout = v
	}

	// APPLY
	if v, ok := getEnvArgs("APPLY_RELOAD_COMMAND"); ok {
		c.Apply.ReloadCommand = v
	}
	if v, ok := getEnvArgs("APPLY_RESTART_COMMAND"); ok {
		c.Apply.RestartCommand = v
	}
	if v, ok := getEnvDur("APPLY_TIMEOUT"); ok {
		c.Apply.Timeout = v
	}

	// ADMIN
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}
}

// CanSkip devuelve timing.can_skip con su default.
func (c *Config) CanSkip() bool {
	return c.Timing.CanSkip == nil || *c.Timing.CanSkip
}

// Validate revisa valores críticos.
func (c *Config) Validate() error {
	var errs []error
	if c.Bundle.Retention < 0 {
		errs = append(errs, fmt.Errorf("bundle.retention must be >= 0 (got %d)", c.Bundle.Retention))
	}
	if c.Bundle.CheckInterval < 0 {
		errs = append(errs, errors.New("bundle.check_interval must not be negative"))
	}
	if c.Replication.QueueSize < 0 {
		errs = append(errs, errors.New("replication.queue_size must not be negative"))
	}
	switch c.Replication.Mode {
	case ReplicationMemory:
	case ReplicationRedis:
		if strings.TrimSpace(c.Replication.Redis.Addr) == "" {
			errs = append(errs, errors.New("replication.redis.addr is required in redis mode"))
		}
	case ReplicationHTTP:
		if len(c.Replication.HTTP.Secret) < 16 {
			errs = append(errs, errors.New("replication.http.secret must have at least 16 bytes in http mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("replication.mode %q is not one of memory, redis, http", c.Replication.Mode))
	}
	if c.Timing.SkipNewVersions && (c.Timing.AutomaticReload || c.Timing.AutomaticRestart) {
		errs = append(errs, errors.New("timing.skip_new_versions cannot be combined with automatic reload or restart"))
	}
	if strings.EqualFold(c.App.Env, "prod") && strings.TrimSpace(c.Admin.APIKey) == "" {
		errs = append(errs, errors.New("admin.api_key is required in prod"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
