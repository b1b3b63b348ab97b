package naming

import (
	"testing"
	"time"
)

var stamp = time.Date(2024, 5, 17, 9, 30, 45, 0, time.UTC)

func TestSanitizeBaseName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ride", "ride"},
		{"Morning Ride", "Morning_Ride"},
		{"été à vélo!", "t_v_lo"},
		{"  spaced  ", "spaced"},
		{"///", "export"},
		{"", "export"},
		{"v1.2_final-copy", "v1.2_final-copy"},
	}
	for _, tc := range cases {
		if got := SanitizeBaseName(tc.in); got != tc.want {
			t.Errorf("SanitizeBaseName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExportFilenameSinglePart(t *testing.T) {
	got := ExportFilename("ride", "combined", 1, 1, stamp)
	want := "ride-combined-20240517-093045.png"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExportFilenameMultiPart(t *testing.T) {
	got := ExportFilename("alps tour", "base", 2, 4, stamp)
	want := "alps_tour-base_part2of4-20240517-093045.png"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGeoTIFFSidecarName(t *testing.T) {
	got := GeoTIFFSidecarName("ride-base-20240517-093045.png")
	if got != "ride-base-20240517-093045.tif" {
		t.Errorf("got %q", got)
	}
}
