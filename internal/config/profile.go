package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is a reusable set of session settings kept in a YAML or JSON file.
type Profile struct {
	UserAgent       string   `json:"user_agent" yaml:"user_agent"`
	TimeoutSeconds  int64    `json:"timeout_seconds" yaml:"timeout_seconds"`
	TimeoutMS       int64    `json:"timeout_ms" yaml:"timeout_ms"`
	Verbose         *bool    `json:"verbose" yaml:"verbose"`
	FailOnHTTPError *bool    `json:"fail_on_http_error" yaml:"fail_on_http_error"`
	Headers         []string `json:"headers" yaml:"headers"`
}

// LoadProfile reads a session profile. The extension picks the decoder; an unknown
// extension tries YAML then JSON.
func LoadProfile(path string) (*Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profile file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	p, err := parseProfile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	p = sanitizeProfile(p)
	if err := validateProfile(p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

type unmarshalFn func([]byte, any) error

func parseProfile(data []byte, ext string) (Profile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
		}
	}

	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		var p Profile
		if err := d.fn(data, &p); err == nil {
			return p, nil
		}
	}

	return Profile{}, errors.New("profile file format not recognized (expected YAML or JSON)")
}

func sanitizeProfile(p Profile) Profile {
	p.UserAgent = strings.TrimSpace(p.UserAgent)

	headers := make([]string, 0, len(p.Headers))
	for _, h := range p.Headers {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, h)
		}
	}
	p.Headers = headers
	return p
}

func validateProfile(p Profile) error {
	if p.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	if p.TimeoutMS < 0 {
		return errors.New("timeout_ms must not be negative")
	}
	for i, h := range p.Headers {
		if !strings.Contains(h, ":") {
			return fmt.Errorf("headers[%d] %q is not of the form \"Name: value\"", i, h)
		}
	}
	return nil
}
