package app

import (
	"fmt"
	"io"
	"os"

	"github.com/samvad-hq/easyxfer/internal/config"
	"github.com/samvad-hq/easyxfer/internal/logger"
	"github.com/samvad-hq/easyxfer/pkg/easy"
	"github.com/samvad-hq/easyxfer/pkg/httpclient"
)

// Runtime owns the process-wide pieces a CLI run needs: logging, the initialized
// transfer library and a Client bound to both.
type Runtime struct {
	Client *Client
	lib    *easy.Library
}

// Start initializes logging and the transfer library. Close must be called once the
// client is no longer used.
func Start(cfg *config.Config, opts ...Option) (*Runtime, error) {
	return start(cfg, os.Stderr, opts...)
}

// start is Start with an explicit log destination. Verbose from flags or environment,
// else from the session profile, drives both the log level and the transfer log.
func start(cfg *config.Config, logOut io.Writer, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	profile, err := loadProfile(cfg.ProfileFile)
	if err != nil {
		return nil, err
	}
	effective := *cfg
	effective.Verbose = cfg.Verbose || isSet(profile.Verbose)
	cfg = &effective

	sugar, err := logger.InitWriter(cfg, logOut)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	lib, err := easy.Init(httpclient.NewEngine(httpclient.WithLogger(sugar)), easy.GlobalAll)
	if err != nil {
		logger.Close()
		return nil, err
	}

	client, err := NewClient(lib, cfg, logger.Global(), append([]Option{withProfile(profile)}, opts...)...)
	if err != nil {
		lib.Cleanup()
		logger.Close()
		return nil, err
	}
	logger.DebugObj("transfer library initialized", "config", map[string]any{
		"user_agent":      cfg.UserAgent,
		"timeout_seconds": cfg.TimeoutSeconds,
		"profile_file":    cfg.ProfileFile,
		"verbose":         cfg.Verbose,
	})
	return &Runtime{Client: client, lib: lib}, nil
}

// Close runs the global teardown and flushes logs.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	err := r.lib.Cleanup()
	logger.Close()
	return err
}
