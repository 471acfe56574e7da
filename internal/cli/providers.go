// Package cli provides the providers listing command.
package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mediasink/mediasink/internal/cloud/providers"
)

// newProvidersCmd creates the 'providers' command.
func newProvidersCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the supported cloud storage backends",
		Long: `List every cloud storage backend with its canonical ID and whether it
supports loading objects back.

Either the ID or the display name is accepted wherever a provider is
named: --provider flags, the config file, and MEDIASINK_PROVIDER.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := providers.All()

			if jsonOut {
				type providerInfo struct {
					ID          string `json:"id"`
					DisplayName string `json:"display_name"`
					CanLoad     bool   `json:"can_load"`
				}
				infos := make([]providerInfo, len(entries))
				for i, e := range entries {
					infos[i] = providerInfo{ID: e.ID, DisplayName: e.DisplayName, CanLoad: providers.CanDownload(e.ID)}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLOAD")
			for _, e := range entries {
				load := "yes"
				if !providers.CanDownload(e.ID) {
					load = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.DisplayName, load)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the list as JSON")

	return cmd
}
