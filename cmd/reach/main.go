// Package main is the reach study command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/reach/config"
	"go.viam.com/reach/logging"
	"go.viam.com/reach/plugins/builtin"
	"go.viam.com/reach/registry"
	"go.viam.com/reach/study"
)

const (
	flagConfig    = "config"
	flagDelay     = "delay"
	flagOverwrite = "overwrite"
	flagDebug     = "debug"
	flagLogFile   = "log-file"
	flagSchema    = "schema"

	logFileMaxSizeMB  = 100
	logFileMaxBackups = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "reach:", err)
		stop()
		//nolint:gocritic
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "reach",
		Usage:           "run a reach study and optimize the robot placement",
		ArgsUsage:       "<results-dir> <config-name>",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load the study configuration from `FILE` (default <results-dir>/<config-name>.json)",
			},
			&cli.DurationFlag{
				Name:  flagDelay,
				Usage: "wait `DURATION` before starting",
			},
			&cli.BoolFlag{
				Name:  flagOverwrite,
				Usage: "delete previous results of the study before running",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated by size",
			},
			&cli.BoolFlag{
				Name:  flagSchema,
				Usage: "print the JSON schema of the config file and exit",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) (err error) {
	if c.Bool(flagSchema) {
		schema, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, string(schema))
		return err
	}
	if c.NArg() != 2 {
		return errors.Errorf("expected 2 arguments <results-dir> <config-name>, got %d", c.NArg())
	}
	resultsDir, configName := c.Args().Get(0), c.Args().Get(1)
	runOpts := study.RunOptions{
		ResultsDir: resultsDir,
		ConfigName: configName,
		Overwrite:  c.Bool(flagOverwrite),
	}
	if err := runOpts.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger("reach")
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}
	if path := c.String(flagLogFile); path != "" {
		fileAppender := logging.NewFileAppender(path, logFileMaxSizeMB, logFileMaxBackups)
		logger.AddAppender(fileAppender)
		defer utils.UncheckedErrorFunc(fileAppender.Close)
	}
	defer utils.UncheckedErrorFunc(logger.Sync)

	configPath := c.String(flagConfig)
	if configPath == "" {
		configPath = filepath.Join(resultsDir, configName+".json")
	}
	cfg, err := config.Read(c.Context, configPath, logger)
	if err != nil {
		return errors.Wrap(err, "error reading config")
	}

	if delay := c.Duration(flagDelay); delay > 0 {
		logger.Infow("delaying start", "delay", delay)
		if !utils.SelectContextOrWait(c.Context, delay) {
			return c.Context.Err()
		}
	}

	r := builtin.NewRegistry(registry.Env{SearchPath: cfg.SearchPath(), Logger: logger.Sublogger("plugins")})
	p, err := study.PluginsFromConfig(cfg, r)
	if err != nil {
		return errors.Wrap(err, "error creating plugins")
	}
	s, err := study.New(study.OptionsFromConfig(configName, cfg), p, logger)
	if err != nil {
		return errors.Wrap(err, "error creating study")
	}
	return study.RunStudy(c.Context, s, runOpts)
}
