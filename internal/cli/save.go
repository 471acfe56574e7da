// Package cli provides the save command group.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register decoders for save image inputs.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/cobra"

	"github.com/mediasink/mediasink/internal/cloud/providers"
	"github.com/mediasink/mediasink/internal/config"
	"github.com/mediasink/mediasink/internal/media"
	"github.com/mediasink/mediasink/internal/models"
	"github.com/mediasink/mediasink/internal/naming"
	"github.com/mediasink/mediasink/internal/nodes"
	"github.com/mediasink/mediasink/internal/pathutil"
	"github.com/mediasink/mediasink/internal/storage"
	"github.com/mediasink/mediasink/internal/util/filter"
	"github.com/mediasink/mediasink/internal/util/tags"
)

// saveFlags holds the flags shared by every save subcommand.
type saveFlags struct {
	dest destinationFlags

	local       bool
	cloud       bool
	outputDir   string
	localFolder string
	overwrite   bool

	filename string
	name     string
	prefix   string

	workflowFile string
	extras       []string
	tagPairs     []string
	noMetadata   bool

	jsonOut bool
}

// register adds the shared save flags to cmd.
func (f *saveFlags) register(cmd *cobra.Command) {
	f.dest.register(cmd)

	cmd.Flags().BoolVar(&f.local, "local", true, "Save to local disk")
	cmd.Flags().BoolVar(&f.cloud, "cloud", false, "Save to the cloud destination")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Base directory for local saves (default: output_dir from config)")
	cmd.Flags().StringVar(&f.localFolder, "local-folder", "", "Subfolder under the output directory for local saves")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Overwrite existing local files instead of renaming")

	cmd.Flags().StringVar(&f.filename, "filename", "", "Exact output filename; %date:FMT% and %Node.field% tokens expand")
	cmd.Flags().StringVar(&f.name, "name", "", "Output name without extension; the format's extension is appended")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Prefix for generated names (default \"mediasink\"); may contain a subfolder")

	cmd.Flags().StringVar(&f.workflowFile, "workflow", "", "Workflow graph JSON file to embed as metadata and expand name tokens from")
	cmd.Flags().StringArrayVar(&f.extras, "extra", nil, "Extra metadata entry as key=JSON; repeatable")
	cmd.Flags().StringArrayVar(&f.tagPairs, "tag", nil, "Plain-text metadata entry as key=value; repeatable")
	cmd.Flags().BoolVar(&f.noMetadata, "no-metadata", false, "Skip embedding workflow metadata in outputs")

	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the result as JSON")
}

// buildOptions merges the flags with config defaults into SaveOptions.
func (f *saveFlags) buildOptions(cfg *config.Config) (nodes.SaveOptions, error) {
	dest, err := f.dest.resolve(cfg)
	if err != nil {
		return nodes.SaveOptions{}, err
	}
	if f.cloud {
		if err := maybePromptCredential(&dest); err != nil {
			return nodes.SaveOptions{}, err
		}
	}

	outputDir, err := pathutil.ResolveAbsolutePath(firstNonEmpty(f.outputDir, cfg.OutputDir))
	if err != nil {
		return nodes.SaveOptions{}, fmt.Errorf("failed to resolve output dir: %w", err)
	}

	opts := nodes.SaveOptions{
		SaveLocal:       f.local,
		SaveCloud:       f.cloud,
		Destination:     dest,
		OutputDir:       outputDir,
		LocalFolderPath: f.localFolder,
		Overwrite:       f.overwrite,
		Filename:        f.filename,
		CustomName:      f.name,
		Prefix:          f.prefix,
		NoMetadata:      f.noMetadata,
	}

	if f.workflowFile != "" {
		raw, err := os.ReadFile(f.workflowFile)
		if err != nil {
			return nodes.SaveOptions{}, fmt.Errorf("failed to read workflow file: %w", err)
		}
		graph, err := naming.ParseGraph(raw)
		if err != nil {
			return nodes.SaveOptions{}, fmt.Errorf("workflow file %s: %w", f.workflowFile, err)
		}
		opts.GraphJSON = raw
		opts.Graph = graph
	}

	extra, err := parseExtras(f.extras)
	if err != nil {
		return nodes.SaveOptions{}, err
	}

	// --tag entries are plain strings; JSON-encode them so they join the
	// extra map. An --extra under the same key wins.
	for key, value := range tags.ParsePairs(f.tagPairs) {
		if _, ok := extra[key]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		raw, _ := json.Marshal(value)
		extra[key] = raw
	}
	opts.Extra = extra

	return opts, nil
}

// parseExtras turns repeated key=JSON flags into the extra metadata map.
func parseExtras(entries []string) (map[string]json.RawMessage, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	extra := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --extra %q: expected key=JSON", entry)
		}
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("--extra %q: value is not valid JSON", key)
		}
		extra[key] = json.RawMessage(value)
	}
	return extra, nil
}

// newSaveCmd creates the 'save' command group.
func newSaveCmd() *cobra.Command {
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save media to local disk and/or cloud storage",
		Long: `Save images, audio, video or workflow documents.

Local saving is on by default; add --cloud (with --provider and --locator,
or defaults from the config file) to upload, and --local=false to skip the
local copy.`,
	}

	saveCmd.AddCommand(newSaveImageCmd())
	saveCmd.AddCommand(newSaveAudioCmd())
	saveCmd.AddCommand(newSaveVideoCmd())
	saveCmd.AddCommand(newSaveWEBMCmd())
	saveCmd.AddCommand(newSaveWorkflowCmd())

	return saveCmd
}

// newSaveImageCmd creates the 'save image' command.
func newSaveImageCmd() *cobra.Command {
	var flags saveFlags
	var include, exclude, search []string

	cmd := &cobra.Command{
		Use:   "image <file|dir> [file|dir...]",
		Short: "Re-encode images as PNG and save them",
		Long: `Re-encode one or more images (png, jpeg, gif) as PNG, embed workflow
metadata unless --no-metadata is set, and save the results.

Directory arguments expand to the image files they contain, narrowed by
--include, --exclude and --search; explicit file arguments are taken
as-is.

Examples:
  # Save locally under output/renders with generated names
  mediasink save image frame1.png frame2.png --prefix renders/frame

  # Every non-mask frame from a render directory
  mediasink save image ./renders --include 'frame_*' --exclude '*_mask*'

  # Upload to S3 without keeping a local copy
  mediasink save image out.png --local=false --cloud --provider s3 --locator s3://my-bucket

  # Embed the workflow graph and a custom metadata entry
  mediasink save image out.png --workflow graph.json --extra 'seed=42'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg)
			if err != nil {
				return err
			}

			paths, err := expandImageArgs(args, filter.Config{
				Include: include,
				Exclude: exclude,
				Search:  search,
			})
			if err != nil {
				return err
			}

			images, err := readImages(paths)
			if err != nil {
				return err
			}

			res, err := s.runner.SaveImage(GetContext(), images, opts)
			s.Close()
			if err != nil {
				s.notifier.SaveFailed(err.Error())
				return err
			}
			s.notifier.SaveComplete(len(res.Local), len(res.Cloud), cloudProviderName(opts), opts.OutputDir)
			return printSaveResult(cmd.OutOrStdout(), res, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringArrayVar(&include, "include", nil, "Glob a directory file must match to be saved; repeatable")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Glob that drops directory files (wins over --include); repeatable")
	cmd.Flags().StringArrayVar(&search, "search", nil, "Substring (case-insensitive) a directory file must contain; repeatable")

	return cmd
}

// imageExts are the extensions directory arguments expand to, matching
// the registered decoders.
var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// expandImageArgs replaces directory arguments with the image files
// they contain, narrowed by cfg. Explicit file arguments bypass the
// filters.
func expandImageArgs(args []string, cfg filter.Config) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		names, err := storage.ListInputs(arg, imageExts)
		if err != nil {
			return nil, err
		}
		for _, name := range filter.Apply(names, cfg) {
			paths = append(paths, filepath.Join(arg, name))
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no image files matched")
	}
	return paths, nil
}

// newSaveAudioCmd creates the 'save audio' command.
func newSaveAudioCmd() *cobra.Command {
	var flags saveFlags
	var format string
	var quality string

	cmd := &cobra.Command{
		Use:   "audio <file>",
		Short: "Re-encode an audio file and save it",
		Long: `Re-encode an audio file with ffmpeg and save the result. Metadata tags
are embedded in the output container unless --no-metadata is set.

Quality applies to lossy formats only: V0, 128k or 320k for mp3;
64k, 96k, 128k, 192k or 320k for opus.

Examples:
  # FLAC (lossless, the default)
  mediasink save audio take3.wav --name master

  # 320k MP3 straight to Dropbox
  mediasink save audio take3.wav --format mp3 --quality 320k \
    --local=false --cloud --provider dropbox --folder-path sessions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioFormat, err := media.ParseAudioFormat(format)
			if err != nil {
				return err
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg)
			if err != nil {
				return err
			}

			res, err := s.runner.SaveAudio(GetContext(), args[0], audioFormat, quality, opts)
			s.Close()
			if err != nil {
				s.notifier.SaveFailed(err.Error())
				return err
			}
			s.notifier.SaveComplete(len(res.Local), len(res.Cloud), cloudProviderName(opts), opts.OutputDir)
			return printSaveResult(cmd.OutOrStdout(), res, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "flac", "Output format: wav, flac, mp3 or opus")
	cmd.Flags().StringVar(&quality, "quality", "", "Encode quality for mp3/opus (default "+media.DefaultAudioQuality+")")

	return cmd
}

// newSaveVideoCmd creates the 'save video' command.
func newSaveVideoCmd() *cobra.Command {
	var flags saveFlags
	var container string
	var codec string

	cmd := &cobra.Command{
		Use:   "video <file>",
		Short: "Remux or re-encode a video and save it",
		Long: `Remux or re-encode a video with ffmpeg and save the result. The auto
container keeps the input's container; the auto codec copies streams
without re-encoding (except into webm, which re-encodes to VP9).

Examples:
  # Copy streams into an mkv
  mediasink save video render.mp4 --container mkv

  # Re-encode to h264 and upload to Google Drive as well
  mediasink save video render.mov --codec h264 --cloud --provider gdrive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoContainer, err := media.ParseVideoContainer(container)
			if err != nil {
				return err
			}
			videoCodec, err := media.ParseVideoCodec(codec)
			if err != nil {
				return err
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg)
			if err != nil {
				return err
			}

			res, err := s.runner.SaveVideo(GetContext(), args[0], videoContainer, videoCodec, opts)
			s.Close()
			if err != nil {
				s.notifier.SaveFailed(err.Error())
				return err
			}
			s.notifier.SaveComplete(len(res.Local), len(res.Cloud), cloudProviderName(opts), opts.OutputDir)
			return printSaveResult(cmd.OutOrStdout(), res, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&container, "container", "auto", "Output container: auto, mp4, mkv, mov or webm")
	cmd.Flags().StringVar(&codec, "codec", "auto", "Video codec: auto, h264, vp9 or av1")

	return cmd
}

// newSaveWEBMCmd creates the 'save webm' command.
func newSaveWEBMCmd() *cobra.Command {
	var flags saveFlags
	var codec string
	var crf float64

	cmd := &cobra.Command{
		Use:   "webm <file>",
		Short: "Re-encode a video as WEBM and save it",
		Long: `Re-encode a video as WEBM with ffmpeg. Lower --crf means higher
quality and larger files; the useful range is roughly 20-50.

Examples:
  mediasink save webm render.mp4 --codec av1 --crf 28`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			webmCodec, err := media.ParseWEBMCodec(codec)
			if err != nil {
				return err
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := flags.buildOptions(s.cfg)
			if err != nil {
				return err
			}

			res, err := s.runner.SaveWEBM(GetContext(), args[0], webmCodec, crf, opts)
			s.Close()
			if err != nil {
				s.notifier.SaveFailed(err.Error())
				return err
			}
			s.notifier.SaveComplete(len(res.Local), len(res.Cloud), cloudProviderName(opts), opts.OutputDir)
			return printSaveResult(cmd.OutOrStdout(), res, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&codec, "codec", "vp9", "WEBM codec: vp9 or av1")
	cmd.Flags().Float64Var(&crf, "crf", media.DefaultCRF, "Constant rate factor (quality)")

	return cmd
}

// newSaveWorkflowCmd creates the 'save workflow' command.
func newSaveWorkflowCmd() *cobra.Command {
	var flags saveFlags
	var timestamp bool

	cmd := &cobra.Command{
		Use:   "workflow <graph.json>",
		Short: "Save a workflow graph as a pretty-printed JSON document",
		Long: `Wrap a workflow graph in a JSON document together with any --extra
entries and save it. With --timestamp, names chosen via --filename or
--name get a _YYYYMMDD_hhmmss suffix; generated names are already unique
and are left alone.

Examples:
  mediasink save workflow graph.json --name pipeline --timestamp
  mediasink save workflow graph.json --cloud --provider gcs --locator my-bucket`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			// The graph argument doubles as the metadata workflow.
			flags.workflowFile = args[0]
			opts, err := flags.buildOptions(s.cfg)
			if err != nil {
				return err
			}

			res, err := s.runner.SaveWorkflow(GetContext(), timestamp, opts)
			s.Close()
			if err != nil {
				s.notifier.SaveFailed(err.Error())
				return err
			}
			s.notifier.SaveComplete(len(res.Local), len(res.Cloud), cloudProviderName(opts), opts.OutputDir)
			return printSaveResult(cmd.OutOrStdout(), res, flags.jsonOut)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&timestamp, "timestamp", false, "Append a timestamp to --filename/--name names")

	return cmd
}

// readImages decodes every path into an in-memory image.
func readImages(paths []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := readImage(path)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// cloudProviderName resolves the display name for notifications, empty
// when the save had no cloud leg.
func cloudProviderName(opts nodes.SaveOptions) string {
	if !opts.SaveCloud {
		return ""
	}
	if entry, err := providers.Lookup(opts.Destination.Provider); err == nil {
		return entry.DisplayName
	}
	return opts.Destination.Provider
}

// saveSummary is the --json shape of a save result.
type saveSummary struct {
	Filenames []string              `json:"filenames"`
	Local     []localOutput         `json:"local,omitempty"`
	Cloud     []models.UploadResult `json:"cloud,omitempty"`
}

type localOutput struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// printSaveResult writes where every output landed, one line per copy,
// or the JSON summary with --json.
func printSaveResult(w io.Writer, res *nodes.SaveResult, asJSON bool) error {
	if asJSON {
		summary := saveSummary{Filenames: res.Filenames}
		for _, out := range res.Local {
			summary.Local = append(summary.Local, localOutput{Filename: out.Filename, Path: out.Path, Size: out.Size})
		}
		summary.Cloud = res.Cloud
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	for _, out := range res.Local {
		fmt.Fprintf(w, "local: %s\n", out.Path)
	}
	for _, up := range res.Cloud {
		fmt.Fprintf(w, "cloud: %s\n", uploadLocation(up))
	}
	return nil
}

// uploadLocation picks the most useful identifier an upload reported.
func uploadLocation(up models.UploadResult) string {
	switch {
	case up.URL != "":
		return up.URL
	case up.Bucket != "":
		return up.Bucket + "/" + up.Path
	default:
		return up.Path
	}
}
