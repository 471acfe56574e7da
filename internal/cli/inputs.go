// Package cli provides the inputs listing command.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediasink/mediasink/internal/pathutil"
	"github.com/mediasink/mediasink/internal/storage"
	"github.com/mediasink/mediasink/internal/util/filter"
	"github.com/mediasink/mediasink/internal/util/tags"
)

// newInputsCmd creates the 'inputs' command.
func newInputsCmd() *cobra.Command {
	var inputDir string
	var extFilter string
	var include, exclude, search []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "List files in the input directory",
		Long: `List the files local loads resolve against, the same set --local-file
picks from. Directories and hidden files are skipped.

Examples:
  mediasink inputs
  mediasink inputs --ext flac,mp3,wav
  mediasink inputs --include 'take_*' --exclude '*_rough*'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dir, err := pathutil.ResolveAbsolutePath(firstNonEmpty(inputDir, cfg.InputDir))
			if err != nil {
				return fmt.Errorf("failed to resolve input dir: %w", err)
			}

			names, err := storage.ListInputs(dir, normalizeExts(extFilter))
			if err != nil {
				return err
			}
			names = filter.Apply(names, filter.Config{
				Include: include,
				Exclude: exclude,
				Search:  search,
			})

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Dir   string   `json:"dir"`
					Files []string `json:"files"`
				}{Dir: dir, Files: names})
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory to list (default: input_dir from config)")
	cmd.Flags().StringVar(&extFilter, "ext", "", "Comma-separated extension filter, e.g. flac,mp3")
	cmd.Flags().StringArrayVar(&include, "include", nil, "Glob a file must match to be listed; repeatable")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Glob that drops files (wins over --include); repeatable")
	cmd.Flags().StringArrayVar(&search, "search", nil, "Substring (case-insensitive) a file must contain; repeatable")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the list as JSON")

	return cmd
}

// normalizeExts turns a comma-separated filter into the dotted,
// deduplicated form the storage listing expects.
func normalizeExts(csv string) []string {
	parts := tags.ParseCommaSeparated(csv)
	for i, p := range parts {
		if !strings.HasPrefix(p, ".") {
			parts[i] = "." + p
		}
	}
	return parts
}
