package convert

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/via2coco/internal/conf"
	"github.com/tphakala/via2coco/internal/converter"
	"github.com/tphakala/via2coco/internal/datastore"
	"github.com/tphakala/via2coco/internal/logger"
	"github.com/tphakala/via2coco/internal/observability"
)

// Command creates the convert command.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <image-dir> <via-file> <output-file>",
		Short: "Convert a VIA annotation file to a COCO dataset",
		Long: `Convert the polygon regions of a VIA annotation file to a COCO dataset.

Image dimensions are read from the files in <image-dir>. Regions whose label is
not one of the categories are skipped with a warning, unlabeled regions get the
first category. The output file is only replaced when the conversion succeeds.`,
		Args: cobra.ExactArgs(3), // image dir, annotation file, output file
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), ctx, cmd.Flags(), args)
		},
	}

	// Set up flags specific to the 'convert' command
	if err := setupFlags(cmd, ctx.Settings); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the convert command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	flags := cmd.Flags()
	flags.StringSliceVarP(&settings.Convert.Categories, "categories", "c", viper.GetStringSlice("convert.categories"), "Ordered category names")
	flags.StringVar(&settings.Convert.CategoriesFile, "categories-file", viper.GetString("convert.categoriesfile"), "File with the category names, YAML list or one per line")
	flags.IntVar(&settings.Convert.FirstCategoryID, "first-category-id", viper.GetInt("convert.firstcategoryid"), "Id of the first category")
	flags.StringVar(&settings.Output.SQLite.Path, "sqlite", viper.GetString("output.sqlite.path"), "Export the dataset to this SQLite database; setting the flag enables the export, in config or env also set output.sqlite.enabled")
	flags.StringVar(&settings.Output.Metrics.Path, "metrics-file", viper.GetString("output.metrics.path"), "Write Prometheus textfile metrics to this file; setting the flag enables them, in config or env also set output.metrics.enabled")

	bindings := map[string]string{
		"convert.categories":      "categories",
		"convert.categoriesfile":  "categories-file",
		"convert.firstcategoryid": "first-category-id",
		"output.sqlite.path":      "sqlite",
		"output.metrics.path":     "metrics-file",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}

func run(cmdCtx context.Context, ctx *conf.Context, flags *pflag.FlagSet, args []string) error {
	settings := ctx.Settings
	log := ctx.Logger.Module("convert")

	// passing a path enables the export
	if flags.Changed("sqlite") {
		settings.Output.SQLite.Enabled = true
	}
	if flags.Changed("metrics-file") {
		settings.Output.Metrics.Enabled = true
	}

	fsys := afero.NewOsFs()
	names, err := settings.CategoryNames(fsys)
	if err != nil {
		return err
	}

	opts := converter.NewOptions(args[0], args[1], args[2], names)
	opts.FirstCategoryID = settings.Convert.FirstCategoryID
	opts.RunID = uuid.NewString()
	opts.Fs = fsys
	opts.Logger = log

	var m *observability.Metrics
	if settings.Output.Metrics.Enabled {
		if m, err = observability.NewMetrics(); err != nil {
			return err
		}
		opts.Recorder = m.Converter
	}

	result, runErr := converter.RunWithResult(opts)

	// metrics describe failed runs too
	if m != nil {
		if err := m.WriteTextfile(settings.Output.Metrics.Path); err != nil {
			if runErr != nil {
				log.Warn("failed to write metrics", logger.Error(err))
				return runErr
			}
			return err
		}
		log.Debug("metrics written", logger.String("path", settings.Output.Metrics.Path))
	}
	if runErr != nil {
		log.Error("conversion failed", logger.RunID(opts.RunID), logger.Error(runErr))
		return runErr
	}

	if settings.Output.SQLite.Enabled {
		if err := export(logger.WithRunID(cmdCtx, opts.RunID), ctx.Logger, settings.Output.SQLite.Path, opts, result); err != nil {
			return err
		}
	}

	return nil
}

func export(cmdCtx context.Context, log logger.Logger, path string, opts converter.Options, result *converter.Result) error {
	store, err := datastore.Open(path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()

	_, err = store.Export(cmdCtx, opts.RunID, opts.AnnotationsPath, result.Dataset)
	return err
}
