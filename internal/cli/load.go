// Package cli provides the load command group.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/config"
	"github.com/mediasink/mediasink/internal/nodes"
	"github.com/mediasink/mediasink/internal/pathutil"
	"github.com/mediasink/mediasink/internal/storage"
	"github.com/mediasink/mediasink/internal/util/paths"
	ustrings "github.com/mediasink/mediasink/internal/util/strings"
)

// loadFlags holds the flags shared by every load subcommand.
type loadFlags struct {
	dest destinationFlags

	cloud     bool
	inputDir  string
	pathsFile string
	saveTo    string
	jsonOut   bool
}

// register adds the shared load flags to cmd.
func (f *loadFlags) register(cmd *cobra.Command) {
	f.dest.register(cmd)

	cmd.Flags().BoolVar(&f.cloud, "cloud", false, "Load from the cloud destination instead of local disk")
	cmd.Flags().StringVar(&f.inputDir, "input-dir", "", "Directory local paths resolve against (default: input_dir from config)")
	cmd.Flags().StringVar(&f.pathsFile, "paths-file", "", "File listing paths or object keys to load, one per line")
	cmd.Flags().StringVar(&f.saveTo, "save-to", "", "Write the loaded file contents into this directory")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the result as JSON")
}

// buildOptions merges the flags with config defaults into LoadOptions.
func (f *loadFlags) buildOptions(cfg *config.Config, localFile string) (nodes.LoadOptions, error) {
	dest, err := f.dest.resolve(cfg)
	if err != nil {
		return nodes.LoadOptions{}, err
	}
	if f.cloud {
		if err := maybePromptCredential(&dest); err != nil {
			return nodes.LoadOptions{}, err
		}
	}

	inputDir, err := pathutil.ResolveAbsolutePath(firstNonEmpty(f.inputDir, cfg.InputDir))
	if err != nil {
		return nodes.LoadOptions{}, fmt.Errorf("failed to resolve input dir: %w", err)
	}

	return nodes.LoadOptions{
		FromCloud:   f.cloud,
		Destination: dest,
		InputDir:    inputDir,
		LocalFile:   localFile,
	}, nil
}

// collectPaths combines positional arguments with the --paths-file list.
func (f *loadFlags) collectPaths(args []string) ([]string, error) {
	if f.pathsFile == "" {
		return args, nil
	}
	raw, err := os.ReadFile(f.pathsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read paths file: %w", err)
	}
	combined := append([]string{}, args...)
	return append(combined, ustrings.SplitNonEmptyLines(string(raw))...), nil
}

// newLoadCmd creates the 'load' command group.
func newLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load media from local disk or cloud storage",
		Long: `Load images, audio or video from local disk (the default) or from a
cloud destination with --cloud. Cloud paths are object keys under the
destination's folder path.

Not every backend can read objects back; run 'mediasink providers' to
see which support loading.`,
	}

	loadCmd.AddCommand(newLoadImageCmd())
	loadCmd.AddCommand(newLoadAudioCmd())
	loadCmd.AddCommand(newLoadVideoCmd())

	return loadCmd
}

// newLoadImageCmd creates the 'load image' command.
func newLoadImageCmd() *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "image <path> [path...]",
		Short: "Load images and report their dimensions",
		Long: `Load one or more images, decode their headers, and group them by
dimensions. Batch-compatible images (same width and height) land in the
same group.

Examples:
  # Inspect local images under the input directory
  mediasink load image renders/frame_000.png renders/frame_001.png

  # Fetch from S3 and keep local copies
  mediasink load image frame_000.png --cloud --provider s3 \
    --locator s3://my-bucket --save-to ./fetched

  # Load a list of keys from a file, one per line
  mediasink load image --paths-file keys.txt --cloud --provider gcs`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg, "")
			if err != nil {
				return err
			}

			filePaths, err := flags.collectPaths(args)
			if err != nil {
				return err
			}

			res, err := s.runner.LoadImage(GetContext(), filePaths, opts)
			s.Close()
			if err != nil {
				s.notifier.LoadFailed(err.Error())
				return err
			}
			s.notifier.LoadComplete(len(res.Images), loadProviderName(opts))

			files := make([]nodes.LoadedFile, len(res.Images))
			for i, img := range res.Images {
				files[i] = img.LoadedFile
			}
			if err := writeLoaded(cmd.OutOrStdout(), files, flags.saveTo); err != nil {
				return err
			}
			return printLoadImageResult(cmd.OutOrStdout(), res, flags.jsonOut)
		},
	}

	flags.register(cmd)

	return cmd
}

// newLoadAudioCmd creates the 'load audio' command.
func newLoadAudioCmd() *cobra.Command {
	var flags loadFlags
	var localFile string

	cmd := &cobra.Command{
		Use:   "audio [path...]",
		Short: "Load audio files",
		Long: `Load one or more audio files. For local loads with no paths,
--local-file picks a file from the input directory instead.

Examples:
  mediasink load audio take3.flac
  mediasink load audio mix.mp3 --cloud --provider b2 --locator my-bucket --save-to .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg, localFile)
			if err != nil {
				return err
			}

			filePaths, err := flags.collectPaths(args)
			if err != nil {
				return err
			}

			files, err := s.runner.LoadAudio(GetContext(), filePaths, opts)
			s.Close()
			if err != nil {
				s.notifier.LoadFailed(err.Error())
				return err
			}
			s.notifier.LoadComplete(len(files), loadProviderName(opts))

			if err := writeLoaded(cmd.OutOrStdout(), files, flags.saveTo); err != nil {
				return err
			}
			return printLoadedFiles(cmd.OutOrStdout(), files, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&localFile, "local-file", "", "File from the input directory to load when no paths are given")

	return cmd
}

// newLoadVideoCmd creates the 'load video' command.
func newLoadVideoCmd() *cobra.Command {
	var flags loadFlags
	var localFile string

	cmd := &cobra.Command{
		Use:   "video [path]",
		Short: "Load a video file",
		Long: `Load a single video. Local loads resolve the path without reading the
file into memory; cloud loads fetch the object.

Examples:
  mediasink load video clip.mp4
  mediasink load video render.webm --cloud --provider gdrive --save-to ./fetched`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg, localFile)
			if err != nil {
				return err
			}

			file, err := s.runner.LoadVideo(GetContext(), args, opts)
			s.Close()
			if err != nil {
				s.notifier.LoadFailed(err.Error())
				return err
			}
			s.notifier.LoadComplete(1, loadProviderName(opts))

			if err := writeLoaded(cmd.OutOrStdout(), []nodes.LoadedFile{*file}, flags.saveTo); err != nil {
				return err
			}
			return printLoadedFiles(cmd.OutOrStdout(), []nodes.LoadedFile{*file}, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&localFile, "local-file", "", "File from the input directory to load when no path is given")

	return cmd
}

// loadProviderName resolves the display name for notifications, empty
// for local loads.
func loadProviderName(opts nodes.LoadOptions) string {
	if !opts.FromCloud {
		return ""
	}
	if entry, err := providers.Lookup(opts.Destination.Provider); err == nil {
		return entry.DisplayName
	}
	return opts.Destination.Provider
}

// writeLoaded writes fetched contents into dir. Entries without data
// (local video loads) are already on disk and are skipped. Nested object
// keys flatten to their basename; when distinct keys collide on one name
// each gets a digest of its key spliced in, so "a/frame.png" and
// "b/frame.png" land side by side.
func writeLoaded(w io.Writer, files []nodes.LoadedFile, dir string) error {
	if dir == "" {
		return nil
	}
	dir, err := pathutil.ResolveAbsolutePath(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	withData := make([]nodes.LoadedFile, 0, len(files))
	for _, f := range files {
		if f.Data != nil {
			withData = append(withData, f)
		}
	}
	if len(withData) == 0 {
		return nil
	}

	targets := make([]paths.DownloadTarget, len(withData))
	for i, f := range withData {
		name := path.Base(f.Name)
		targets[i] = paths.DownloadTarget{
			Key:       f.Name,
			Name:      name,
			LocalPath: filepath.Join(dir, name),
			Size:      int64(len(f.Data)),
		}
	}
	targets, _ = paths.ResolveCollisions(targets)

	out := make([]storage.File, len(withData))
	for i, f := range withData {
		out[i] = storage.File{Name: filepath.Base(targets[i].LocalPath), Data: f.Data}
	}

	written, err := storage.WriteOutputs(dir, out, false, nil)
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", dir, err)
	}
	for _, o := range written {
		fmt.Fprintf(w, "wrote: %s\n", o.Path)
	}
	return nil
}

// loadedFileSummary is the --json shape of one loaded file.
type loadedFileSummary struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Size int    `json:"size"`
}

// loadedImageSummary extends the file shape with decoded dimensions.
type loadedImageSummary struct {
	loadedFileSummary
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

func printLoadedFiles(w io.Writer, files []nodes.LoadedFile, asJSON bool) error {
	if asJSON {
		summaries := make([]loadedFileSummary, len(files))
		for i, f := range files {
			summaries[i] = loadedFileSummary{Name: f.Name, Path: f.Path, Size: len(f.Data)}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	for _, f := range files {
		if f.Path != "" {
			fmt.Fprintf(w, "%s (%d bytes) %s\n", f.Name, len(f.Data), f.Path)
		} else {
			fmt.Fprintf(w, "%s (%d bytes)\n", f.Name, len(f.Data))
		}
	}
	return nil
}

func printLoadImageResult(w io.Writer, res *nodes.LoadImageResult, asJSON bool) error {
	if asJSON {
		out := struct {
			Images []loadedImageSummary `json:"images"`
			Groups [][]int              `json:"groups"`
		}{Groups: res.Groups}
		for _, img := range res.Images {
			out.Images = append(out.Images, loadedImageSummary{
				loadedFileSummary: loadedFileSummary{Name: img.Name, Path: img.Path, Size: len(img.Data)},
				Width:             img.Width,
				Height:            img.Height,
				Format:            img.Format,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, img := range res.Images {
		if img.Path != "" {
			fmt.Fprintf(w, "%s %dx%d %s %s\n", img.Name, img.Width, img.Height, img.Format, img.Path)
		} else {
			fmt.Fprintf(w, "%s %dx%d %s\n", img.Name, img.Width, img.Height, img.Format)
		}
	}
	if len(res.Groups) > 1 {
		groups := make([]string, len(res.Groups))
		for i, g := range res.Groups {
			groups[i] = fmt.Sprint(g)
		}
		fmt.Fprintf(w, "groups: %s\n", strings.Join(groups, " "))
	}
	return nil
}
