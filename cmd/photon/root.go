package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/deepteams/photon/internal/logging"
)

// app carries the state shared by every subcommand.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}
	var cfgFile string

	root := &cobra.Command{
		Use:   "photon",
		Short: "Convert still and animated images between formats",
		Long: `Convert still and animated images between GIF, WebP, AVIF, JPEG, PNG,
BMP and TIFF, keeping frame timing, disposal and palettes where the
target format allows.

Examples:
  # Animated GIF to animated WebP
  photon convert --format webp anim.gif

  # Thumbnails of every PNG, four at a time
  photon convert --format jpeg --resize 160x120 --concurrency 4 *.png

  # Inspect a file
  photon info anim.webp`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cfgFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = a.log.Sync() }()
			if !a.v.GetBool("metrics") {
				return nil
			}
			return dumpMetrics(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file path (e.g. photon.yaml)")
	pf.String("log-level", "info", "set the logging level (e.g. debug, info, warn, error)")
	pf.String("log-style", "terminal", "set the logging output style (terminal, json, logfmt, noop)")
	pf.Bool("metrics", false, "print collected metrics to stderr when done")
	a.mustBindPFlag("log.level", pf.Lookup("log-level"))
	a.mustBindPFlag("log.style", pf.Lookup("log-style"))
	a.mustBindPFlag("metrics", pf.Lookup("metrics"))

	root.AddCommand(newConvertCmd(a), newInfoCmd(a))
	return root
}

func (a *app) mustBindPFlag(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// initConfig reads the config file and environment, then builds the logger.
func (a *app) initConfig(cfgFile string) error {
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}
	a.v.SetEnvPrefix("PHOTON")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	style, err := logging.ParseStyle(a.v.GetString("log.style"))
	if err != nil {
		return err
	}
	level := logging.Level(a.v.GetString("log.level"))
	if _, err := logging.ParseLevel(level); err != nil {
		return err
	}
	a.log = logging.NewLogger(&logging.Config{Level: level, Style: style})
	if cfgFile != "" {
		a.log.Debug("using config file", zap.String("path", a.v.ConfigFileUsed()))
	}
	return nil
}

func dumpMetrics(cmd *cobra.Command) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "photon_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(cmd.ErrOrStderr(), mf); err != nil {
			return err
		}
	}
	return nil
}
