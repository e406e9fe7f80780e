package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/forge-factory/internal/catalog"
)

func newCatalogCommand() *cobra.Command {
	var digestOnly bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the active catalog as YAML",
		Long: `Print the items, recipes and harvestable resources the simulation runs with.
The output can be edited and loaded back through simulation.catalog_path.
Saves record the catalog digest and only load against the same catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			if digestOnly {
				fmt.Fprintln(cmd.OutOrStdout(), cat.Digest())
				return nil
			}
			out, err := catalog.Marshal(cat)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# digest %s\n%s", cat.Digest(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&digestOnly, "digest", false, "Print only the catalog digest")
	return cmd
}
