package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/autolink/autolink/internal/patterns"
	"github.com/autolink/autolink/internal/render"
)

type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(v.Problems))
}

func (c *Config) Validate() error {
	v := &ValidationError{}

	if c.ConfigVersion != 1 {
		v.Add("configVersion must be 1")
	}

	if len(c.Scan.Categories) == 0 {
		v.Add("scan.categories must not be empty")
	}
	for i, raw := range c.Scan.Categories {
		if _, err := patterns.ParseCategory(raw); err != nil {
			v.Add("scan.categories[%d] invalid: %v", i, err)
		}
	}
	if c.Scan.CustomPattern != "" {
		if err := patterns.ValidatePattern(c.Scan.CustomPattern); err != nil {
			v.Add("scan.customPattern invalid: %v", err)
		}
	}
	if c.Scan.MaxTextBytes <= 0 {
		v.Add("scan.maxTextBytes must be > 0")
	}

	for name, value := range c.Colors {
		if _, err := patterns.ParseCategory(name); err != nil {
			v.Add("colors.%s invalid: %v", name, err)
			continue
		}
		if _, err := render.ParseColor(value); err != nil {
			v.Add("colors.%s invalid: %v", name, err)
		}
	}
	if c.LinkColor != "" {
		if _, err := render.ParseColor(c.LinkColor); err != nil {
			v.Add("linkColor invalid: %v", err)
		}
	}
	if c.SelectedColor != "" {
		if _, err := render.ParseColor(c.SelectedColor); err != nil {
			v.Add("selectedColor invalid: %v", err)
		}
	}
	if c.Transition < 0 {
		v.Add("transition must be >= 0")
	}

	if err := validateListen(c.Server.Listen); err != nil {
		v.Add("server.listen invalid: %v", err)
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			v.Add("server.tls.certFile required when tls.enabled is true")
		} else if err := requireFile(c.resolvePath(c.Server.TLS.CertFile)); err != nil {
			v.Add("server.tls.certFile invalid: %v", err)
		}
		if c.Server.TLS.KeyFile == "" {
			v.Add("server.tls.keyFile required when tls.enabled is true")
		} else if err := requireFile(c.resolvePath(c.Server.TLS.KeyFile)); err != nil {
			v.Add("server.tls.keyFile invalid: %v", err)
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			v.Add("rateLimit.rps must be > 0")
		}
		if c.RateLimit.Burst <= 0 {
			v.Add("rateLimit.burst must be > 0")
		}
	}

	if c.Cache.Enabled {
		if c.Cache.RedisURL == "" {
			v.Add("cache.redisURL required when cache.enabled is true")
		} else if err := validateRedisURL(c.Cache.RedisURL); err != nil {
			v.Add("cache.redisURL invalid: %v", err)
		}
	}
	if c.Cache.TTL < 0 {
		v.Add("cache.ttl must be >= 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		v.Add("logging.level must be debug|info|warn|error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		v.Add("logging.format must be json|console")
	}
	if c.Logging.ScanLog != "" {
		if err := ensureWritable(c.resolvePath(c.Logging.ScanLog)); err != nil {
			v.Add("logging.scanLog invalid: %v", err)
		}
	}

	if c.Metrics.Enabled {
		if err := validateListen(c.Metrics.Listen); err != nil {
			v.Add("metrics.listen invalid: %v", err)
		}
	}

	if len(v.Problems) > 0 {
		sort.Strings(v.Problems)
		return v
	}
	return nil
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("address is required")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

func validateRedisURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return errors.New("scheme must be redis or rediss")
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func ensureWritable(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	file, err := os.CreateTemp(dir, "autolink-validate-*")
	if err != nil {
		return err
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
