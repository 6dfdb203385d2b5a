// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "gearmap-go")
	viper.SetDefault("main.timeas24h", true)
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/gearmap.log")
	viper.SetDefault("main.log.level", "info")

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.maxuploadsize", 52428800)
	viper.SetDefault("webserver.uploadrate", 10)
	viper.SetDefault("webserver.filettl", 60)

	viper.SetDefault("webserver.log.enabled", false)
	viper.SetDefault("webserver.log.path", "logs/api.log")
	viper.SetDefault("webserver.log.level", "info")

	viper.SetDefault("conversion.debug", false)
	viper.SetDefault("conversion.defaultdirection", "bid_to_deployment")
	viper.SetDefault("conversion.maxpages", 500)
	viper.SetDefault("conversion.labelsource", "contents")

	viper.SetDefault("icons.imagedir", "images")
	viper.SetDefault("icons.rendersize", 100)

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.dsn", "")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "gearmap.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "gearmap")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "gearmap")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", 3306)
}
