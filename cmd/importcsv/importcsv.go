// Package importcsv runs the CSV import pipeline.
package importcsv

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/importer"
)

// Command creates the import subcommand
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [datadir]",
		Short: "Import species, research and record CSV feeds",
		Long: "Process the CSV feeds found in the data directory. Each row commits " +
			"independently; failed rows are collected into the error report and " +
			"never abort the batch.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				settings.Import.DataDir = args[0]
			}
			return runImport(cmd, settings)
		},
	}
	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Import.DataDir, "data", settings.Import.DataDir, "Directory holding the CSV feeds")
	cmd.Flags().IntVarP(&settings.Import.Workers, "workers", "w", settings.Import.Workers, "Number of import workers")
	cmd.Flags().BoolVar(&settings.Import.Dedupe, "dedupe", settings.Import.Dedupe, "Skip rows already imported in a previous run")
	cmd.Flags().StringVarP(&settings.Import.ErrorReportPath, "report", "r", settings.Import.ErrorReportPath, "Path of the rejected-row report")
}

func runImport(cmd *cobra.Command, settings *conf.Settings) error {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	pipeline := importer.New(settings, store)
	summary, err := pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("run %s\n", summary.RunID)
	fmt.Printf("  species rows:    %d (%d new)\n", summary.SpeciesRows, summary.SpeciesCreated)
	fmt.Printf("  research rows:   %d (%d new)\n", summary.ResearchRows, summary.ResearchCreated)
	fmt.Printf("  record rows:     %d\n", summary.RecordRows)
	fmt.Printf("  occurrences:     %d new, %d merged\n", summary.OccurrencesNew, summary.OccurrencesAdded)
	fmt.Printf("  skipped:         %d\n", summary.Skipped)
	fmt.Printf("  rejected:        %d\n", summary.Rejected)
	if summary.Rejected > 0 {
		fmt.Printf("  report:          %s\n", settings.Import.ErrorReportPath)
	}
	return nil
}
