package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/postdeck/internal/app"
	"github.com/debemdeboas/postdeck/internal/config"
	"github.com/debemdeboas/postdeck/internal/logger"
	"github.com/debemdeboas/postdeck/internal/model"
)

var errDiscardDeclined = errors.New("the open draft has unsaved changes (use --force to discard them)")

type commandContext struct {
	configFlag *string
	logLevel   *string
	force      *bool

	in     io.Reader
	errOut io.Writer

	config *config.Config
	logger zerolog.Logger
	app    *app.App
}

func newCommandContext(configFlag, logLevel *string, force *bool, in io.Reader, errOut io.Writer) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		logLevel:   logLevel,
		force:      force,
		in:         in,
		errOut:     errOut,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}

	path := strings.TrimSpace(*c.configFlag)
	if path == "" {
		path = config.DefaultConfigFile
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level := strings.TrimSpace(*c.logLevel); level != "" {
		cfg.Logging.Level = level
	}

	c.config = cfg
	c.logger = logger.NewWithWriter(cfg.Logging.Level, zerolog.ConsoleWriter{Out: c.errOut, NoColor: true})
	app.SetLoggers(c.logger)
	return cfg, nil
}

// ensureApp opens the configured backends and resumes the persisted session.
func (c *commandContext) ensureApp(cmd *cobra.Command) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, c.logger, c.confirmDiscard)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

// confirmDiscard honours --force and otherwise asks on an interactive
// terminal. It runs with the Store locked.
func (c *commandContext) confirmDiscard(current *model.DraftPost) bool {
	if *c.force {
		return true
	}
	f, ok := c.in.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return false
	}

	title := current.Title
	if title == "" {
		title = "untitled"
	}
	fmt.Fprintf(c.errOut, "Discard unsaved changes to %q? [y/N] ", title)
	answer, _ := bufio.NewReader(f).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (c *commandContext) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close(ctx)
	c.app = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
