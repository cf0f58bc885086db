// Package species maintains the species dictionary from the command line.
package species

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/normalize"
)

// Command creates the species subcommand group
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Maintain the species dictionary",
	}
	cmd.AddCommand(
		addCommand(settings),
		synonymCommand(settings),
		searchCommand(settings),
		deleteCommand(settings),
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

func addCommand(settings *conf.Settings) *cobra.Command {
	var vernacular, subfamily string
	cmd := &cobra.Command{
		Use:   "add [scientific name]",
		Short: "Register a species and its primary synonyms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(store datastore.Interface) error {
				sci := normalize.Display(args[0])
				sp := datastore.Species{
					ScientificName: sci,
					VernacularName: normalize.Display(vernacular),
					Subfamily:      normalize.Display(subfamily),
				}
				created, err := store.InsertSpecies(&sp)
				if err != nil {
					return err
				}
				for _, name := range []string{sci, sp.VernacularName} {
					if name == "" {
						continue
					}
					if err := store.InsertSynonym(sp.ID, name, normalize.Text(name), "primary"); err != nil {
						return err
					}
				}
				if created {
					fmt.Printf("created species %d: %s\n", sp.ID, sp.ScientificName)
				} else {
					fmt.Printf("species %d already registered: %s\n", sp.ID, sp.ScientificName)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&vernacular, "vernacular", "", "Vernacular name")
	cmd.Flags().StringVar(&subfamily, "subfamily", "", "Subfamily")
	return cmd
}

func synonymCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "synonym [species id] [name]",
		Short: "Register an alias for an existing species",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid species id: %s", args[0])
			}
			return withStore(settings, func(store datastore.Interface) error {
				name := normalize.Display(args[1])
				if err := store.InsertSynonym(uint(id), name, normalize.Text(name), "alias"); err != nil {
					return err
				}
				fmt.Printf("synonym %q registered for species %d\n", name, id)
				return nil
			})
		},
	}
}

func searchCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "search [pattern]",
		Short: "Search species by name or synonym",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(store datastore.Interface) error {
				matches, err := store.SearchSpecies(args[0])
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					fmt.Println("no match")
					return nil
				}
				for _, sp := range matches {
					names := make([]string, 0, len(sp.Synonyms))
					for _, syn := range sp.Synonyms {
						names = append(names, syn.Name)
					}
					fmt.Printf("%d\t%s\t%s\t[%s]\n", sp.ID, sp.ScientificName, sp.VernacularName, strings.Join(names, ", "))
				}
				return nil
			})
		},
	}
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [species id]",
		Short: "Delete a species that has no occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid species id: %s", args[0])
			}
			return withStore(settings, func(store datastore.Interface) error {
				if err := store.DeleteSpecies(uint(id)); err != nil {
					return err
				}
				fmt.Printf("species %d deleted\n", id)
				return nil
			})
		},
	}
}
