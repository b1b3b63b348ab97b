package track

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tkrajina/gpxgo/gpx"
)

// ParseFile loads a track file by extension. Supported: .gpx, .tcx.
// FIT files need a binary decoder we don't ship; the error says so rather
// than failing with a generic message.
func ParseFile(path string) (*Track, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return parseGPX(path)
	case ".tcx":
		return parseTCX(path)
	case ".fit":
		return nil, fmt.Errorf("FIT files are not supported, convert to GPX first")
	default:
		return nil, fmt.Errorf("unsupported track format: %s", filepath.Ext(path))
	}
}

func parseGPX(path string) (*Track, error) {
	gpxFile, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}

	var line orb.LineString
	name := ""
	for _, trk := range gpxFile.Tracks {
		if name == "" {
			name = trk.Name
		}
		for _, segment := range trk.Segments {
			for _, p := range segment.Points {
				line = append(line, orb.Point{p.Longitude, p.Latitude})
			}
		}
	}
	// Route-only files carry no <trk> elements
	if len(line) == 0 {
		for _, rte := range gpxFile.Routes {
			if name == "" {
				name = rte.Name
			}
			for _, p := range rte.Points {
				line = append(line, orb.Point{p.Longitude, p.Latitude})
			}
		}
	}
	if name == "" {
		name = gpxFile.Name
	}
	if name == "" {
		name = baseName(path)
	}

	return &Track{
		Name:    name,
		Visible: true,
		Line:    line,
		Length:  computeLength(line),
	}, nil
}

// tcxDocument is the minimal TCX schema we care about: every trackpoint
// position across all activities and laps, in document order.
type tcxDocument struct {
	Activities []struct {
		Sport string `xml:"Sport,attr"`
		Laps  []struct {
			Trackpoints []struct {
				Position *struct {
					Lat float64 `xml:"LatitudeDegrees"`
					Lng float64 `xml:"LongitudeDegrees"`
				} `xml:"Position"`
			} `xml:"Track>Trackpoint"`
		} `xml:"Lap"`
	} `xml:"Activities>Activity"`
}

func parseTCX(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read TCX file: %w", err)
	}

	var doc tcxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TCX file: %w", err)
	}

	var line orb.LineString
	name := ""
	for _, activity := range doc.Activities {
		if name == "" && activity.Sport != "" {
			name = activity.Sport
		}
		for _, lap := range activity.Laps {
			for _, tp := range lap.Trackpoints {
				// Trackpoints without a GPS fix carry no Position
				if tp.Position == nil {
					continue
				}
				line = append(line, orb.Point{tp.Position.Lng, tp.Position.Lat})
			}
		}
	}
	if name == "" {
		name = baseName(path)
	}

	return &Track{
		Name:    name,
		Visible: true,
		Line:    line,
		Length:  computeLength(line),
	}, nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
