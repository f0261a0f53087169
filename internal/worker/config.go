package worker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// Config holds worker settings.
type Config struct {
	Workers int
	// SignedDivision makes 8, 16 and 32-bit division sign-correcting.
	SignedDivision bool

	Queue   QueueConfig
	Storage StorageConfig
	Redis   RedisConfig

	// NetworkKey is the 0x-prefixed hex network key.
	NetworkKey string
	// MetricsAddr is the listen address of the health and metrics server.
	// Empty disables it.
	MetricsAddr string `toml:",omitempty"`
}

// QueueConfig selects the job queue.
type QueueConfig struct {
	Backend string // "redis" or "memory"
	Name    string
}

// StorageConfig selects where the engine keeps sealed words.
type StorageConfig struct {
	Backend string // "memory", "file" or "redis"
	Path    string `toml:",omitempty"`
	// Capacity bounds the memory backend in words. Zero is unbounded.
	Capacity int `toml:",omitempty"`
}

// RedisConfig holds the Redis connection shared by the queue and storage.
type RedisConfig struct {
	Addr     string
	Password string `toml:",omitempty"`
	DB       int
}

// DefaultConfig contains the default worker settings.
var DefaultConfig = Config{
	Workers: 4,
	Queue: QueueConfig{
		Backend: "redis",
		Name:    "default",
	},
	Storage: StorageConfig{
		Backend: "memory",
	},
	Redis: RedisConfig{
		Addr: "localhost:6379",
	},
	MetricsAddr: ":9090",
}

// Validate checks that cfg names known backends.
func (cfg *Config) Validate() error {
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	switch cfg.Queue.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
	switch cfg.Storage.Backend {
	case "memory", "redis":
	case "file":
		if cfg.Storage.Path == "" {
			return errors.New("file storage needs a path")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

// TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadConfig reads a TOML file over cfg.
func LoadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = DecodeConfig(bufio.NewReader(f), cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// DecodeConfig decodes TOML from r over cfg.
func DecodeConfig(r io.Reader, cfg *Config) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

// EncodeConfig writes cfg as TOML.
func EncodeConfig(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
