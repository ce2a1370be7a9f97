package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/mwantia/docfs"
	"github.com/spf13/cobra"
)

type availabilityOutput struct {
	API          string `json:"api"`
	Category     string `json:"category"`
	Availability string `json:"availability"`
	Kind         string `json:"kind"`
	Branch       string `json:"branch,omitempty"`
	Version      int    `json:"version,omitempty"`
}

func (c *CLI) newAvailabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability <api>...",
		Short: "Print the release in which each API became available",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			return c.withInstance(cmd, func(si *docfs.ServerInstance) error {
				ctx := cmd.Context()

				results, err := si.Availability().GetAPIAvailabilities(ctx, args...)
				if err != nil {
					return err
				}

				names := slices.Clone(args)
				slices.Sort(names)
				names = slices.Compact(names)

				outputs := make([]availabilityOutput, 0, len(names))
				for _, name := range names {
					category, err := si.Categorizer().GetCategory(ctx, name)
					if err != nil {
						return err
					}

					result := results[name]
					output := availabilityOutput{
						API:          name,
						Category:     string(category),
						Availability: result.String(),
						Kind:         string(result.Kind),
					}
					if result.IsAvailable() {
						output.Branch = result.Channel.Branch
						if !result.Channel.IsTrunk() {
							output.Version = result.Channel.Version
						}
					}
					outputs = append(outputs, output)
				}

				if asJSON {
					encoder := json.NewEncoder(cmd.OutOrStdout())
					encoder.SetIndent("", "  ")
					return encoder.Encode(outputs)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "API\tCATEGORY\tAVAILABILITY\tBRANCH")
				for _, output := range outputs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", output.API, output.Category, output.Availability, output.Branch)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().Bool("json", false, "Print results as JSON")

	return cmd
}
