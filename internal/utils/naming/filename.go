// Package naming centralizes export artifact file naming
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const timestampLayout = "20060102-150405"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeBaseName strips characters that are unsafe in filenames across
// platforms, collapsing runs into single underscores
func SanitizeBaseName(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "export"
	}
	return name
}

// ExportFilename builds the name of one export artifact.
// Multi-part: {base}-{kind}_part{i}of{n}-{timestamp}.png (i is 1-based).
// Single: {base}-{kind}-{timestamp}.png.
func ExportFilename(base, kind string, part, total int, t time.Time) string {
	base = SanitizeBaseName(base)
	ts := t.Format(timestampLayout)
	if total > 1 {
		return fmt.Sprintf("%s-%s_part%dof%d-%s.png", base, kind, part, total, ts)
	}
	return fmt.Sprintf("%s-%s-%s.png", base, kind, ts)
}

// GeoTIFFSidecarName converts an export artifact name to its GeoTIFF
// companion
func GeoTIFFSidecarName(pngName string) string {
	return strings.TrimSuffix(pngName, ".png") + ".tif"
}
