package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vidrelay/internal/httputil"
	"vidrelay/internal/identity"
	"vidrelay/internal/media"
)

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "List the renditions available for a video page",
	Args:  cobra.ExactArgs(1),
	RunE:  infoRun,
}

func infoRun(cmd *cobra.Command, args []string) error {
	src := args[0]
	if err := httputil.ValidateURL(src); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	resolver, err := newResolver(nil)
	if err != nil {
		return err
	}
	catalog, err := resolver.Resolve(cmd.Context(), src)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}

	printCatalog(catalog)
	return nil
}

func printCatalog(c *media.Catalog) {
	fmt.Printf("%s\n", c.Title)
	fmt.Printf("id: %s  duration: %s  provider: %s\n", c.ContentID, formatDuration(c.DurationSeconds), c.Provider)
	if c.ContentID != "" {
		fmt.Printf("page: %s\n", identity.CanonicalURL(c.ContentID))
	}
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tQUALITY\tFORMAT\tSIZE\tDELIVERY")
	for _, r := range c.Renditions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Kind, r.Quality, r.Format, formatSize(r.SizeBytes), r.Hint)
	}
	tw.Flush()
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "?"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatSize(n int64) string {
	const unit = 1024
	if n <= 0 {
		return "-"
	}
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
