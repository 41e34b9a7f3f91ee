package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Converter names accepted in the resize.converters chain.
const (
	ConverterImaginary = "imaginary"
	ConverterNative    = "native"
	ConverterBasic     = "basic"
)

// Config holds every option the daemon consumes once the loader resolves
// defaults, file input, and environment overrides.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Source    SourceConfig    `koanf:"source"`
	Cache     CacheConfig     `koanf:"cache"`
	Resize    ResizeConfig    `koanf:"resize"`
	Imaginary ImaginaryConfig `koanf:"imaginary"`
}

// ServerConfig collects the bootstrap knobs for the HTTP lifecycle.
type ServerConfig struct {
	Listen  ListenConfig  `koanf:"listen"`
	Logging LoggingConfig `koanf:"logging"`
}

// ListenConfig instructs the HTTP listener about bind address and port.
type ListenConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// LoggingConfig expresses log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SourceConfig roots the read-only source-image tree.
type SourceConfig struct {
	Root string `koanf:"root"`
}

// CacheConfig locates the derivative cache below the source root.
type CacheConfig struct {
	Dir string `koanf:"dir"`
}

// ResizeConfig carries the knobs the orchestrator consults per request.
// Converters is the ordered backend chain; any subset of the three known
// names is valid, including a single entry.
type ResizeConfig struct {
	Converters    []string `koanf:"converters"`
	StripMetadata bool     `koanf:"stripMetadata"`
	Quality       int      `koanf:"quality"`
}

// ImaginaryConfig describes the optional remote resize service and the
// absolute-URL base it fetches source images from.
type ImaginaryConfig struct {
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	Path          string `koanf:"path"`
	SourceBaseURL string `koanf:"sourceBaseUrl"`
}

// BaseURL assembles the service endpoint from host, port, and path.
func (c ImaginaryConfig) BaseURL() string {
	host := strings.TrimRight(c.Host, "/")
	base := host
	if c.Port > 0 {
		base = fmt.Sprintf("%s:%d", host, c.Port)
	}
	if p := strings.Trim(c.Path, "/"); p != "" {
		base = base + "/" + p
	}
	return base
}

// DefaultConfig mirrors the documented out-of-the-box behavior: cache under
// images/hbnimages, full imaginary -> native -> basic fallback chain, and the
// local imaginary endpoint.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen:  ListenConfig{Address: "0.0.0.0", Port: 8080},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		},
		Source: SourceConfig{Root: "."},
		Cache:  CacheConfig{Dir: "images/hbnimages"},
		Resize: ResizeConfig{
			Converters:    []string{ConverterImaginary, ConverterNative, ConverterBasic},
			StripMetadata: true,
			Quality:       80,
		},
		Imaginary: ImaginaryConfig{
			Host: "http://localhost",
			Port: 9000,
			Path: "",
		},
	}
}

// Validate rejects option combinations the runtime cannot honor.
func (c Config) Validate() error {
	switch strings.ToLower(c.Server.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unsupported logging level %q", c.Server.Logging.Level)
	}
	switch strings.ToLower(c.Server.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: unsupported logging format %q", c.Server.Logging.Format)
	}
	if c.Server.Listen.Port <= 0 || c.Server.Listen.Port > 65535 {
		return fmt.Errorf("config: listen port %d out of range", c.Server.Listen.Port)
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return fmt.Errorf("config: cache dir must not be empty")
	}
	if c.Resize.Quality < 0 || c.Resize.Quality > 100 {
		return fmt.Errorf("config: quality %d out of range 0-100", c.Resize.Quality)
	}
	if len(c.Resize.Converters) == 0 {
		return fmt.Errorf("config: at least one converter required")
	}
	for _, name := range c.Resize.Converters {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ConverterImaginary, ConverterNative, ConverterBasic:
		default:
			return fmt.Errorf("config: unknown converter %q", name)
		}
	}
	if c.Imaginary.Host != "" {
		if _, err := url.Parse(c.Imaginary.BaseURL()); err != nil {
			return fmt.Errorf("config: imaginary endpoint: %w", err)
		}
	}
	if c.Imaginary.SourceBaseURL != "" {
		u, err := url.Parse(c.Imaginary.SourceBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: sourceBaseUrl %q is not an absolute URL", c.Imaginary.SourceBaseURL)
		}
	}
	return nil
}
