package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"yucil"
	"yucil/config"
	"yucil/dispatch"
	"yucil/internal/logging"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string
	jsonFlag     bool

	appOpts []yucil.Option

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(opts ...yucil.Option) *commandContext {
	return &commandContext{appOpts: opts}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, used, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if level := strings.TrimSpace(c.logLevelFlag); level != "" {
			cfg.LogLevel = level
		}
		c.config = cfg
		c.configPath = used
	})
	return c.config, c.configErr
}

// withApp opens the backend for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(context.Context, *yucil.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := yucil.Open(ctx, cfg, logger, c.appOpts...)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// invoke runs a command through the dispatcher and returns its data.
func invoke(ctx context.Context, app *yucil.App, name string, args []byte) (any, error) {
	resp := app.Dispatcher.Invoke(ctx, dispatch.Request{Command: name, Args: args})
	if !resp.OK {
		return nil, resp.Err
	}
	return resp.Data, nil
}

// wantJSON reports whether output should be JSON rather than a table.
func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	return c.jsonFlag || !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
