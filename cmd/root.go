package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/via2coco/cmd/convert"
	"github.com/tphakala/via2coco/cmd/inspect"
	"github.com/tphakala/via2coco/internal/conf"
	"github.com/tphakala/via2coco/internal/logger"
	"github.com/tphakala/via2coco/internal/telemetry"
)

// RootCommand creates and returns the root command. The returned close
// function releases the logger and flushes telemetry.
func RootCommand(ctx *conf.Context) (*cobra.Command, func()) {
	var central *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:     "via2coco",
		Short:   "Convert VIA polygon annotations to COCO datasets",
		Version: ctx.Build.String(),
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, ctx.Settings); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		convert.Command(ctx),
		inspect.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Re-read settings so flags and an explicit --config take precedence
		settings, err := reloadSettings(cmd)
		if err != nil {
			return err
		}
		*ctx.Settings = *settings

		central, err = initialize(ctx)
		return err
	}

	closeFn := func() {
		telemetry.Flush(telemetry.DefaultFlushTimeout)
		if central != nil {
			_ = central.Close()
		}
	}

	return rootCmd, closeFn
}

// initialize builds the logger and telemetry once settings are final.
func initialize(ctx *conf.Context) (*logger.CentralLogger, error) {
	central, err := logger.NewCentralLogger(ctx.Settings.LoggingConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	// unscoped, commands add their own module
	ctx.Logger = central.Module("")

	if err := telemetry.InitSentry(ctx.Settings, ctx.Build, ctx.Logger); err != nil {
		// telemetry is optional, run without it
		ctx.Logger.Warn("telemetry disabled", logger.Error(err))
	}

	ctx.Logger.Debug("settings loaded",
		logger.String("version", ctx.Build.GetVersion()),
		logger.String("config_file", viper.ConfigFileUsed()))
	return central, nil
}

func reloadSettings(cmd *cobra.Command) (*conf.Settings, error) {
	if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
		return conf.Load(f.Value.String())
	}
	return conf.Unmarshal()
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Log.File, "log-file", viper.GetString("log.file"), "Also write JSON logs to this file")
	flags.String("config", "", "Config file (default searches ./via2coco.yaml, ~/.config/via2coco, /etc/via2coco)")

	if err := viper.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("log.file", flags.Lookup("log-file")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
