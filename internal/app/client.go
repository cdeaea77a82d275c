package app

import (
	"fmt"
	"io"
	"os"

	"github.com/samvad-hq/easyxfer/internal/config"
	"github.com/samvad-hq/easyxfer/internal/logger"
	"github.com/samvad-hq/easyxfer/pkg/easy"
)

// Client runs the demo transfers against an initialized easy.Library. Results go to
// stdout, diagnostics to stderr.
type Client struct {
	lib     *easy.Library
	cfg     *config.Config
	profile *config.Profile
	log     logger.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// Option customizes a Client.
type Option func(*Client)

// WithOutput redirects the result and diagnostic streams.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Client) {
		if stdout != nil {
			c.stdout = stdout
		}
		if stderr != nil {
			c.stderr = stderr
		}
	}
}

// NewClient builds a client from config. The session profile named by cfg.ProfileFile,
// if any, is loaded here so a bad profile fails before any transfer starts.
func NewClient(lib *easy.Library, cfg *config.Config, log logger.Logger, opts ...Option) (*Client, error) {
	if lib == nil {
		return nil, fmt.Errorf("library must not be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	c := &Client{
		lib:    lib,
		cfg:    cfg,
		log:    log,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.profile == nil {
		p, err := loadProfile(cfg.ProfileFile)
		if err != nil {
			return nil, err
		}
		c.profile = p
	}
	if cfg.ProfileFile != "" {
		log.InfoObj("session profile loaded", "profile_meta", map[string]any{
			"path":    cfg.ProfileFile,
			"headers": len(c.profile.Headers),
		})
	}
	return c, nil
}

// withProfile hands NewClient a profile that was already loaded.
func withProfile(p *config.Profile) Option {
	return func(c *Client) { c.profile = p }
}

// loadProfile reads the session profile at path; an empty path yields an empty profile.
func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		return &config.Profile{}, nil
	}
	p, err := config.LoadProfile(path)
	if err != nil {
		return nil, fmt.Errorf("load session profile: %w", err)
	}
	return p, nil
}

// openSession creates a session with the shared settings from config and profile applied.
// Flags and environment win over the profile.
func (c *Client) openSession() (*easy.Session, error) {
	s, err := c.lib.NewSession()
	if err != nil {
		return nil, err
	}
	if err := c.configure(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (c *Client) configure(s *easy.Session) error {
	agent := c.cfg.UserAgent
	if agent == "" {
		agent = c.profile.UserAgent
	}
	if agent != "" {
		if err := s.SetUserAgent(agent); err != nil {
			return err
		}
	}

	switch {
	case c.cfg.TimeoutSeconds > 0:
		if err := s.SetTimeoutSeconds(c.cfg.TimeoutSeconds); err != nil {
			return err
		}
	case c.profile.TimeoutMS > 0:
		if err := s.SetTimeoutMilliseconds(c.profile.TimeoutMS); err != nil {
			return err
		}
	case c.profile.TimeoutSeconds > 0:
		if err := s.SetTimeoutSeconds(c.profile.TimeoutSeconds); err != nil {
			return err
		}
	}

	if c.cfg.Verbose || isSet(c.profile.Verbose) {
		if err := s.SetVerbose(true); err != nil {
			return err
		}
	}
	if c.cfg.FailOnHTTPError || isSet(c.profile.FailOnHTTPError) {
		if err := s.SetFailOnHTTPError(true); err != nil {
			return err
		}
	}
	return nil
}

func isSet(b *bool) bool {
	return b != nil && *b
}
