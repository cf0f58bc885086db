// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "antdb-go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/antdb.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "antdb.sqlite3")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "antdb")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "antdb")

	viper.SetDefault("import.datadir", "./csv_data")
	viper.SetDefault("import.workers", 1)
	viper.SetDefault("import.dedupe", true)
	viper.SetDefault("import.errorreportpath", "import_errors.csv")
}
