// Package config loads farmconf settings from farmconf.yaml and FARMCONF_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "FARMCONF"

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Lists    ListsConfig    `mapstructure:"lists"`
	// NodeName is this host's name. Defaults to the OS host name.
	NodeName string        `mapstructure:"node_name"`
	LogLevel string        `mapstructure:"log_level"`
	Farms    []domain.Farm `mapstructure:"farms"`
	// DisabledExtensions are extension keys switched off on this host.
	DisabledExtensions []string `mapstructure:"disabled_extensions"`
	// MaintenanceClusters are database clusters whose wikis are served a
	// maintenance response.
	MaintenanceClusters []string `mapstructure:"maintenance_clusters"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PathsConfig locates list files, caches and configuration sources.
type PathsConfig struct {
	ListDir       string   `mapstructure:"list_dir"`
	CacheDir      string   `mapstructure:"cache_dir"`
	OverrideDir   string   `mapstructure:"override_dir"`
	BaseFiles     []string `mapstructure:"base_files"`
	ExtensionFile string   `mapstructure:"extension_file"`
	RuntimeDir    string   `mapstructure:"runtime_dir"`
	VersionMarker string   `mapstructure:"version_marker"`
}

type CacheConfig struct {
	// RevalidateDelay must pass after the newest source change before a
	// recomputed snapshot is written back.
	RevalidateDelay time.Duration `mapstructure:"revalidate_delay"`
	// ListTTL keeps parsed list files in memory. Zero reads them every time.
	ListTTL time.Duration `mapstructure:"list_ttl"`
}

type ListsConfig struct {
	// RegenerateInterval schedules a periodic rebuild of every farm's lists.
	// Zero only rebuilds on registry changes.
	RegenerateInterval time.Duration `mapstructure:"regenerate_interval"`
}

// Default returns the configuration of a single-farm production host.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "farmconf.db"},
		Paths: PathsConfig{
			ListDir:       "/srv/mediawiki/cache",
			CacheDir:      "/srv/mediawiki/cache",
			OverrideDir:   "/srv/mediawiki/cache",
			BaseFiles:     []string{"/etc/farmconf/settings.yaml"},
			ExtensionFile: "/etc/farmconf/extensions.yaml",
			RuntimeDir:    "/srv/mediawiki",
			VersionMarker: "includes/Defines.php",
		},
		Cache:    CacheConfig{RevalidateDelay: 2 * time.Second},
		Lists:    ListsConfig{RegenerateInterval: time.Hour},
		LogLevel: "info",
	}
}

// DefaultFarms is used when the configuration names no farm.
func DefaultFarms() []domain.Farm {
	return []domain.Farm{{
		Name:           "wikitide",
		Suffix:         "wikitide",
		Domain:         "wikitide.org",
		DefaultServer:  "wikitide.org",
		GlobalDatabase: "wtglobal",
		Versions: map[string]string{
			"alpha":  "1.42",
			"beta":   "1.41",
			"lts":    "1.39",
			"stable": "1.40",
		},
		DefaultChannel: "stable",
		BetaChannel:    "beta",
		BetaHost:       "test1.wikitide.net",
	}}
}

// Load reads path, or farmconf.yaml from the working directory or
// /etc/farmconf when path is empty, over Default. Environment variables
// override file values: FARMCONF_CACHE_REVALIDATE_DELAY sets
// cache.revalidate_delay. A missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("farmconf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/farmconf")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if len(cfg.Farms) == 0 {
		cfg.Farms = DefaultFarms()
	}
	if cfg.NodeName == "" {
		cfg.NodeName, _ = os.Hostname()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every farm can serve wikis.
func (c *Config) Validate() error {
	if len(c.Farms) == 0 {
		return errors.New("config: no farms configured")
	}
	seen := make(map[string]bool, len(c.Farms))
	for _, f := range c.Farms {
		switch {
		case f.Name == "" || f.Suffix == "":
			return fmt.Errorf("config: farm %q needs a name and a suffix", f.Name)
		case seen[f.Name]:
			return fmt.Errorf("config: farm %q configured twice", f.Name)
		case f.DefaultVersion("") == "":
			return fmt.Errorf("config: farm %q default channel %q has no version", f.Name, f.DefaultChannel)
		}
		seen[f.Name] = true
	}
	return nil
}

// bindEnvs registers every leaf key of cfg so AutomaticEnv values reach
// Unmarshal even when the file does not mention the key.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(slices.Clone(parts), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
