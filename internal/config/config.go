package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yuanying/epubpager/internal/reader"
	"github.com/yuanying/epubpager/internal/render"
)

// Config holds application configuration.
type Config struct {
	Viewer ViewerConfig `mapstructure:"viewer"`
	Reader ReaderConfig `mapstructure:"reader"`
	Log    LogConfig    `mapstructure:"log"`
}

// ViewerConfig holds the preferences applied to every view.
type ViewerConfig struct {
	SyntheticLayout bool   `mapstructure:"synthetic_layout"`
	Margin          int    `mapstructure:"margin"`
	Theme           string `mapstructure:"theme"`
	FontSize        int    `mapstructure:"font_size"`
}

// ReaderConfig holds viewport and loading settings.
type ReaderConfig struct {
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	Width       int           `mapstructure:"width"`
	Height      int           `mapstructure:"height"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"spread":       "viewer.synthetic_layout",
	"margin":       "viewer.margin",
	"theme":        "viewer.theme",
	"font-size":    "viewer.font_size",
	"load-timeout": "reader.load_timeout",
	"width":        "reader.width",
	"height":       "reader.height",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// Load reads configuration from defaults, a TOML file, the environment and
// flags, in increasing order of precedence. Env var overrides use prefix
// EPUBPAGER_. The file is path when set, else $EPUBPAGER_CONFIG, else
// ~/.config/epubpager/config.toml if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("viewer.synthetic_layout", false)
	v.SetDefault("viewer.margin", 2)
	v.SetDefault("viewer.theme", render.DefaultTheme)
	v.SetDefault("viewer.font_size", 100)
	v.SetDefault("reader.load_timeout", reader.DefaultLoadTimeout)
	v.SetDefault("reader.width", 80)
	v.SetDefault("reader.height", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("EPUBPAGER_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "epubpager"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("EPUBPAGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Viewer.Margin < 0 {
		errs = append(errs, fmt.Errorf("viewer.margin must be >= 0, got %d", c.Viewer.Margin))
	}
	if c.Viewer.FontSize < 50 || c.Viewer.FontSize > 400 {
		errs = append(errs, fmt.Errorf("viewer.font_size must be within [50, 400], got %d", c.Viewer.FontSize))
	}
	if _, ok := render.LookupTheme(c.Viewer.Theme); !ok {
		errs = append(errs, fmt.Errorf("viewer.theme %q is unknown (available: %s)",
			c.Viewer.Theme, strings.Join(render.ThemeNames(), ", ")))
	}
	if c.Reader.LoadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("reader.load_timeout must be positive, got %s", c.Reader.LoadTimeout))
	}
	if c.Reader.Width < 20 {
		errs = append(errs, fmt.Errorf("reader.width must be >= 20, got %d", c.Reader.Width))
	}
	if c.Reader.Height < 3 {
		errs = append(errs, fmt.Errorf("reader.height must be >= 3, got %d", c.Reader.Height))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid (use debug, info, warn or error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid (use text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Settings returns the viewer preferences as coordinator settings.
func (v ViewerConfig) Settings() reader.Settings {
	return reader.Settings{
		SyntheticLayout: v.SyntheticLayout,
		Margin:          v.Margin,
		Theme:           v.Theme,
		FontSize:        v.FontSize,
	}
}
