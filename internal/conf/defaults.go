package conf

import "github.com/spf13/viper"

// setDefaultConfig registers a default for every key so environment
// overrides are seen by Unmarshal.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("convert.categories", []string{})
	viper.SetDefault("convert.categoriesfile", "")
	viper.SetDefault("convert.firstcategoryid", 1)

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "via2coco.db")
	viper.SetDefault("output.metrics.enabled", false)
	viper.SetDefault("output.metrics.path", "via2coco.prom")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.timezone", "Local")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.environment", "production")
}
