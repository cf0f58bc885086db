// Package initdb creates the database schema and seeds the controlled
// vocabularies used by the import path.
package initdb

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
)

// Seed vocabularies. The import path only reads these tables, so anything a
// records feed references has to exist here or be added with `antdb species`
// style maintenance before importing.
var seedLookups = map[datastore.LookupKind][]string{
	datastore.LookupEnvironment: {"森林", "草地", "湿地", "市街地", "河原", "海岸"},
	datastore.LookupMethod:      {"ハンドコレクション", "ピットフォールトラップ", "ベイトトラップ", "リタースフティング"},
	datastore.LookupSeason:      {"spring", "summer", "autumn", "winter"},
	datastore.LookupUnit:        {"worker", "individual", "colony", "queen"},
}

// Command creates the init subcommand
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database schema and seed vocabularies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(settings)
		},
	}
	return cmd
}

func runInit(settings *conf.Settings) error {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	created := 0
	for kind, names := range seedLookups {
		for _, name := range names {
			id, err := store.GetOrCreateLookup(kind, name)
			if err != nil {
				return err
			}
			if id != 0 {
				created++
			}
		}
	}

	fmt.Printf("database initialized, %d vocabulary entries present\n", created)
	return nil
}
