package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	return &Settings{
		Output: OutputSettings{
			SQLite: SQLiteSettings{Enabled: true, Path: "antdb.sqlite3"},
		},
		Import: ImportSettings{Workers: 1},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateSettings(validSettings()))

	s := validSettings()
	s.Output.SQLite.Enabled = false
	assert.Error(t, ValidateSettings(s), "no database enabled")

	s = validSettings()
	s.Output.SQLite.Path = ""
	assert.Error(t, ValidateSettings(s), "sqlite without a path")

	s = validSettings()
	s.Output.SQLite.Enabled = false
	s.Output.MySQL.Enabled = true
	assert.Error(t, ValidateSettings(s), "mysql without host and database")
	s.Output.MySQL.Host = "localhost"
	s.Output.MySQL.Database = "antdb"
	assert.NoError(t, ValidateSettings(s))

	s = validSettings()
	s.Import.Workers = 0
	assert.Error(t, ValidateSettings(s), "zero workers")
}
