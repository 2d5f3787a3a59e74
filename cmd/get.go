package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"vidrelay/internal/delivery"
	"vidrelay/internal/download"
	"vidrelay/internal/history"
	"vidrelay/internal/httputil"
	"vidrelay/internal/media"
	"vidrelay/internal/ui"
)

var (
	flagQuality string
	flagFormat  string
	flagKind    string
	flagOutput  string
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download a rendition to a local file",
	Long: `Resolve the URL, select a rendition and save it.
Without --quality an interactive picker is shown when running in a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: getRun,
}

func init() {
	getCmd.Flags().StringVarP(&flagQuality, "quality", "q", "", "Exact quality label, e.g. 720p or 128kbps")
	getCmd.Flags().StringVarP(&flagFormat, "format", "f", "", "Container format (default mp4 for video, mp3 for audio)")
	getCmd.Flags().StringVarP(&flagKind, "kind", "k", "video", "Rendition kind: video | audio")
	getCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output directory (default from config)")
}

func getRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src := args[0]
	if err := httputil.ValidateURL(src); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	kind, err := media.ParseKind(flagKind)
	if err != nil {
		return err
	}

	resolver, err := newResolver(nil)
	if err != nil {
		return err
	}
	catalog, err := resolver.Resolve(ctx, src)
	if err != nil {
		return err
	}

	rendition, err := chooseRendition(catalog, kind)
	if err != nil {
		return err
	}
	debugf("selected %s from %s (%s)", rendition.Label(), catalog.Provider, rendition.Hint)

	dir := flagOutput
	if dir == "" {
		if dir, err = cfg.ExpandDownloadDir(); err != nil {
			return err
		}
	}
	filename := httputil.LocalFilename(catalog.Title, rendition.Quality, rendition.Format)

	fs := afero.NewOsFs()
	if ok, err := confirmOverwrite(fs, dir, filename); err != nil {
		return err
	} else if !ok {
		fmt.Fprintln(os.Stderr, "Skipped.")
		return nil
	}

	out, err := newEngine().DeliverFrom(ctx, resolver, src, catalog, rendition, delivery.Request{Intent: delivery.IntentDownload})
	if err != nil {
		return fmt.Errorf("delivering %s: %w", rendition.Label(), err)
	}
	res := out.Result
	catalog, rendition = out.Catalog, out.Rendition
	debugf("delivering %s from %s as %s", rendition.Label(), catalog.Provider, res.Mode())

	fmt.Fprintf(os.Stderr, "Downloading %s (%s)...\n", catalog.Title, rendition.Label())
	path, err := download.NewSaver(fs, nil).Save(ctx, dir, filename, res)
	if err != nil {
		return fmt.Errorf("saving download: %w", err)
	}

	recordSaved(cmd, src, catalog, rendition)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"title":   catalog.Title,
			"quality": rendition.Quality,
			"format":  rendition.Format,
			"path":    path,
		})
	}
	fmt.Printf("Saved to %s\n", path)
	return nil
}

// chooseRendition applies the flags, falling back to a picker when no
// quality was given and a terminal is attached.
func chooseRendition(c *media.Catalog, kind media.Kind) (media.Rendition, error) {
	format := flagFormat
	if flagQuality != "" {
		if format == "" {
			format = lo.Ternary(kind == media.Audio, "mp3", "mp4")
		}
		return media.Select(c, kind, flagQuality, format)
	}

	candidates := lo.Filter(c.Renditions, func(r media.Rendition, _ int) bool {
		return r.Kind == kind && (format == "" || strings.EqualFold(r.Format, format))
	})
	if len(candidates) == 0 {
		return media.Select(c, kind, "", format)
	}
	if !ui.Interactive() {
		return media.Rendition{}, errors.New("--quality is required when not running in a terminal")
	}

	labels := lo.Map(candidates, func(r media.Rendition, _ int) string {
		if r.SizeBytes > 0 {
			return fmt.Sprintf("%s  (%s)", r.Label(), formatSize(r.SizeBytes))
		}
		return r.Label()
	})
	idx, err := ui.Select(c.Title, labels)
	if err != nil {
		return media.Rendition{}, err
	}
	return candidates[idx], nil
}

// confirmOverwrite asks before replacing an existing file. Without a terminal
// the file is replaced.
func confirmOverwrite(fs afero.Fs, dir, filename string) (bool, error) {
	path, err := httputil.SafeDownloadPath(dir, filename)
	if err != nil {
		return false, err
	}
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists || !ui.Interactive() {
		return true, nil
	}
	ok, err := ui.Confirm(fmt.Sprintf("%s exists. Overwrite?", filename))
	if errors.Is(err, ui.ErrCancelled) {
		return false, nil
	}
	return ok, err
}

func recordSaved(cmd *cobra.Command, src string, c *media.Catalog, r media.Rendition) {
	store, err := openHistory()
	if err != nil {
		debugf("history unavailable: %v", err)
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	if _, err := store.Record(cmd.Context(), history.Entry{
		SourceURL: src,
		ContentID: string(c.ContentID),
		Title:     c.Title,
		Provider:  c.Provider,
		Kind:      r.Kind.String(),
		Quality:   r.Quality,
		Format:    r.Format,
		Mode:      "saved",
	}); err != nil {
		debugf("recording history: %v", err)
	}
}
