package commands

import (
	"fmt"

	"github.com/mwantia/docfs"
	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the object store caches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop all memoized availabilities",
		Long: "Drop all memoized availabilities. Needed after the release history " +
			"was redefined; compiled file system entries revalidate on their own.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withInstance(cmd, func(si *docfs.ServerInstance) error {
				if err := si.Availability().Invalidate(cmd.Context()); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Cleared availability cache on '%s'\n", si.Creator().Backend().Name())
				return nil
			})
		},
	})

	return cmd
}
