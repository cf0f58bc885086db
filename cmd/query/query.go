// Package query exposes the analytics queries on the command line.
package query

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
)

// Command creates the query subcommand group
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run analytics queries over the observation data",
	}
	cmd.AddCommand(
		sympatricCommand(settings),
		habitatsCommand(settings),
		researchCommand(settings),
		occurrencesCommand(settings),
		siteCommand(settings),
		statsCommand(settings),
	)
	return cmd
}

func withStore(settings *conf.Settings, fn func(store datastore.Interface) error) error {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %s", arg)
	}
	return uint(id), nil
}

func sympatricCommand(settings *conf.Settings) *cobra.Command {
	var minSites int
	cmd := &cobra.Command{
		Use:   "sympatric [species id]",
		Short: "List species co-occurring at the same sites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(settings, func(store datastore.Interface) error {
				rows, err := store.SympatricSpecies(id, minSites)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Printf("%d\t%s\t%s\t%d sites\n", r.SpeciesID, r.ScientificName, r.VernacularName, r.CoOccurrenceSites)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&minSites, "min-sites", 1, "Minimum number of shared sites")
	return cmd
}

func habitatsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "habitats [species id]",
		Short: "Summarize occurrences per environment type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(settings, func(store datastore.Interface) error {
				rows, err := store.HabitatStats(id)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Printf("%s\t%d sites\t%d individuals\tavg %.1f\televation %d-%d m\n",
						r.Environment, r.SiteCount, r.TotalIndividuals, r.AvgAbundance, r.MinElevation, r.MaxElevation)
				}
				return nil
			})
		},
	}
}

func researchCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "research [species id]",
		Short: "List literature sources recording a species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(settings, func(store datastore.Interface) error {
				rows, err := store.ResearchForSpecies(id)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Printf("%d\t%s (%s, %d)\t%d sites\t%d records\n",
						r.ResearchID, r.Title, r.Author, r.Year, r.SiteCount, r.TotalRecords)
				}
				return nil
			})
		},
	}
}

func occurrencesCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "occurrences [species id]",
		Short: "List every observation of a species with its site and source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(settings, func(store datastore.Interface) error {
				rows, err := store.OccurrenceDetails(id)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Printf("%s (%d)\t%s\t%s\t%.4f,%.4f\t%dm\t%s\t%s\t%d %s\n",
						r.Research, r.Year, r.SiteName, r.SurveyDate,
						r.Latitude, r.Longitude, r.Elevation,
						r.Environment, r.Method, r.Abundance, r.Unit)
				}
				return nil
			})
		},
	}
}

func siteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "site [site id]",
		Short: "List species recorded at a survey site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(settings, func(store datastore.Interface) error {
				rows, err := store.SiteSpeciesList(id)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Printf("%s\t%s\t%d %s\t%s\n", r.ScientificName, r.VernacularName, r.Abundance, r.Unit, r.Method)
				}
				return nil
			})
		},
	}
}

func statsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print database summary statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(store datastore.Interface) error {
				stats, err := store.StatisticsSummary()
				if err != nil {
					return err
				}
				fmt.Printf("species:      %d\n", stats.TotalSpecies)
				fmt.Printf("research:     %d\n", stats.TotalResearch)
				fmt.Printf("sites:        %d\n", stats.TotalSites)
				fmt.Printf("occurrences:  %d\n", stats.TotalOccurrences)
				fmt.Printf("latest year:  %d\n", stats.LatestResearchYear)
				return nil
			})
		},
	}
}
