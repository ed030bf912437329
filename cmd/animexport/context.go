package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/animexport/animexport"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	journalFlag  *string

	config *animexport.Config
	logger *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag, journalFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		journalFlag:  journalFlag,
	}
}

// load reads the configuration file, or the defaults when none is given,
// and builds the logger. Subcommands apply their own flag overrides.
func (c *commandContext) load(cmd *cobra.Command) error {
	level, err := parseLevel(*c.logLevelFlag)
	if err != nil {
		return err
	}
	c.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := strings.TrimSpace(*c.configFlag)
	if path == "" {
		c.config = animexport.DefaultConfig()
	} else {
		cfg, err := animexport.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c.config = cfg
	}
	if j := strings.TrimSpace(*c.journalFlag); j != "" {
		c.config.Journal.Path = j
	}
	return nil
}

func (c *commandContext) reconstructor(cmd *cobra.Command) *animexport.Reconstructor {
	r := animexport.New(c.config, c.logger)
	r.SetStdout(cmd.OutOrStdout())
	return r
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
