package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/mwantia/docfs/branch"
	"github.com/spf13/cobra"
)

func (c *CLI) newBranchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Print the release history in the order it is searched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, _ := cmd.Flags().GetString("from")

			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}

			branches, err := cfg.LoadBranches()
			if err != nil {
				return err
			}

			channel, err := branch.ParseChannel(from)
			if err != nil {
				return err
			}

			info, err := branches.GetChannelInfo(channel)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tBRANCH\tVERSION")
			for ok := true; ok; info, ok = branches.Older(info) {
				version := "-"
				if !info.IsTrunk() {
					version = fmt.Sprint(info.Version)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Channel, info.Branch, version)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("from", string(branch.Trunk), "Channel to start from (trunk, dev, beta or stable)")

	return cmd
}
