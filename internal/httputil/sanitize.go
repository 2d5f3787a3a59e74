package httputil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// nonWordPattern matches anything that is not a word character, whitespace or hyphen.
	nonWordPattern = regexp.MustCompile(`[^\w\s-]`)

	// separatorRunPattern matches runs of hyphens and whitespace.
	separatorRunPattern = regexp.MustCompile(`[-\s]+`)
)

// ValidateURL checks that a URL is absolute, well-formed and uses HTTP(S).
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("URL is empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("only HTTP(S) URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// SanitizeFilename turns an arbitrary string into a safe filename.
// Non-ASCII letters are transliterated, characters other than word characters,
// whitespace and hyphens are stripped, and runs of whitespace or hyphens
// collapse into a single hyphen.
func SanitizeFilename(name string) string {
	name = unidecode.Unidecode(name)
	name = nonWordPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = separatorRunPattern.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		return "download"
	}
	return name
}

// AttachmentName is the Content-Disposition filename for a rendition:
// "{title}_{quality}.{format}" passed through SanitizeFilename as a whole,
// so the result holds only word characters and hyphens.
func AttachmentName(title, quality, format string) string {
	if title == "" {
		title = "video"
	}
	return SanitizeFilename(fmt.Sprintf("%s_%s.%s", title, quality, format))
}

// LocalFilename is the on-disk name for a rendition. Unlike AttachmentName it
// keeps a real extension.
func LocalFilename(title, quality, format string) string {
	if title == "" {
		title = "video"
	}
	stem := SanitizeFilename(fmt.Sprintf("%s_%s", title, quality))
	if format == "" {
		return stem
	}
	return stem + "." + strings.ToLower(SanitizeFilename(format))
}

// SafeDownloadPath resolves and validates a download path ensuring it stays within the target directory.
func SafeDownloadPath(dir, filename string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	full := filepath.Join(absDir, filepath.Base(filename))

	resolved, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	if !strings.HasPrefix(resolved, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", resolved, absDir)
	}

	return resolved, nil
}
