package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// defaults lists every setting the service reads. Only these keys are taken
// from the process environment.
var defaults = map[string]string{
	"APP_ENV":   "local",
	"APP_PORT":  "8080",
	"GRPC_PORT": "",

	"DB_DRIVER":            "sqlite",
	"DATABASE_DSN":         "",
	"DB_MAX_OPEN_CONNS":    "25",
	"DB_MAX_IDLE_CONNS":    "10",
	"DB_CONN_MAX_LIFETIME": "5m",
	"DB_SLOW_QUERY":        "200ms",
	"AUTO_MIGRATE":         "true",
	"SEED_ON_BOOT":         "true",

	"CACHE_DRIVER":   "memory",
	"CACHE_TTL":      "15m",
	"CACHE_SIZE":     "1024",
	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",

	"JWT_SECRET":      "change-me-in-production",
	"JWT_ISSUER":      "orderly",
	"JWT_AUDIENCE":    "orderly-clients",
	"JWT_TTL_MINUTES": "60",
	"ADMIN_USERNAME":  "admin",
	"ADMIN_PASSWORD":  "admin",
	"AUTH_REQUIRED":   "false",

	"CORS_ORIGINS":    "http://localhost:5173,http://localhost:3000,http://localhost:8080,http://localhost:5000",
	"RATE_LIMIT":      "200",
	"MAX_BODY_BYTES":  "1048576",
	"IDEMPOTENCY_TTL": "24h",

	"LOG_LEVEL":            "",
	"LOG_FORMAT":           "",
	"LOG_MONGO_URI":        "",
	"LOG_MONGO_DB":         "orderly",
	"LOG_MONGO_COLLECTION": "logs",
	"LOG_MONGO_RETENTION":  "",
	"LOG_MONGO_LEVEL":      "info",

	"KAFKA_BROKERS": "",
	"KAFKA_TOPIC":   "orderly.events",
}

// The first settings file found wins. JSON is a subset of YAML, so one
// decoder reads all three.
var settingsFiles = []string{"config/app.yaml", "config/app.yml", "config/app.json"}

const dotenvFile = ".env"

var (
	once    sync.Once
	loadErr error

	mu     sync.RWMutex
	values = maps.Clone(defaults)
)

// Load layers defaults, the settings file, .env and the environment, later
// layers winning. Only the first call does any work.
func Load() error {
	once.Do(func() { loadErr = load(settingsFiles, dotenvFile) })
	return loadErr
}

// Set overrides one key for the rest of the process.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}

func load(files []string, dotenv string) error {
	next := maps.Clone(defaults)

	for _, path := range files {
		err := mergeSettings(path, next)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := mergeDotEnv(dotenv, next); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for key := range defaults {
		if v, ok := os.LookupEnv(key); ok {
			next[key] = strings.TrimSpace(v)
		}
	}

	mu.Lock()
	values = next
	mu.Unlock()
	return nil
}

func mergeSettings(path string, into map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	flatten("", doc, into)
	return nil
}

// flatten maps nested sections onto upper snake keys, so
//
//	db:
//	  driver: postgres
//
// sets DB_DRIVER. Lists become comma separated.
func flatten(prefix string, node map[string]any, into map[string]string) {
	for k, v := range node {
		key := strings.ToUpper(strings.TrimSpace(k))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch v := v.(type) {
		case map[string]any:
			flatten(key, v, into)
		case []any:
			parts := make([]string, len(v))
			for i, e := range v {
				parts[i] = fmt.Sprint(e)
			}
			into[key] = strings.Join(parts, ",")
		case nil:
		default:
			into[key] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
}

func mergeDotEnv(path string, into map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		k, v, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("config: %s:%d: expected KEY=value", path, n)
		}
		into[strings.ToUpper(k)] = dotenvValue(strings.TrimSpace(v))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// dotenvValue strips matching quotes. Unquoted values may carry a trailing
// " # comment".
func dotenvValue(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	if i := strings.Index(v, " #"); i >= 0 {
		return strings.TrimSpace(v[:i])
	}
	return v
}
