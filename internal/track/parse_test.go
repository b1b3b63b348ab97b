package track

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gpxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Morning Ride</name>
    <trkseg>
      <trkpt lat="48.8566" lon="2.3522"><ele>35</ele></trkpt>
      <trkpt lat="48.8570" lon="2.3530"><ele>36</ele></trkpt>
      <trkpt lat="48.8580" lon="2.3545"><ele>36</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

const gpxRouteFixture = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte>
    <name>Planned Route</name>
    <rtept lat="51.5074" lon="-0.1278"></rtept>
    <rtept lat="51.5080" lon="-0.1260"></rtept>
  </rte>
</gpx>`

const tcxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
  <Activities>
    <Activity Sport="Running">
      <Lap StartTime="2024-05-01T08:00:00Z">
        <Track>
          <Trackpoint>
            <Time>2024-05-01T08:00:00Z</Time>
            <Position>
              <LatitudeDegrees>40.7128</LatitudeDegrees>
              <LongitudeDegrees>-74.0060</LongitudeDegrees>
            </Position>
          </Trackpoint>
          <Trackpoint>
            <Time>2024-05-01T08:00:05Z</Time>
          </Trackpoint>
          <Trackpoint>
            <Time>2024-05-01T08:00:10Z</Time>
            <Position>
              <LatitudeDegrees>40.7138</LatitudeDegrees>
              <LongitudeDegrees>-74.0050</LongitudeDegrees>
            </Position>
          </Trackpoint>
        </Track>
      </Lap>
    </Activity>
  </Activities>
</TrainingCenterDatabase>`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseGPX(t *testing.T) {
	path := writeFixture(t, "ride.gpx", gpxFixture)
	track, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if track.Name != "Morning Ride" {
		t.Errorf("name = %q, want Morning Ride", track.Name)
	}
	if track.NumPoints() != 3 {
		t.Errorf("points = %d, want 3", track.NumPoints())
	}
	if !track.Visible {
		t.Error("parsed tracks start visible")
	}
	// orb points are lng/lat
	if track.Line[0][0] != 2.3522 || track.Line[0][1] != 48.8566 {
		t.Errorf("first point = %v", track.Line[0])
	}
	if track.Length <= 0 {
		t.Errorf("length = %f, want positive", track.Length)
	}
}

func TestParseGPXRouteFallback(t *testing.T) {
	path := writeFixture(t, "route.gpx", gpxRouteFixture)
	track, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if track.Name != "Planned Route" {
		t.Errorf("name = %q, want Planned Route", track.Name)
	}
	if track.NumPoints() != 2 {
		t.Errorf("points = %d, want 2", track.NumPoints())
	}
}

func TestParseTCX(t *testing.T) {
	path := writeFixture(t, "run.tcx", tcxFixture)
	track, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if track.Name != "Running" {
		t.Errorf("name = %q, want Running", track.Name)
	}
	// The trackpoint without a GPS fix is dropped.
	if track.NumPoints() != 2 {
		t.Errorf("points = %d, want 2", track.NumPoints())
	}
	if math.Abs(track.Line[0][1]-40.7128) > 1e-9 {
		t.Errorf("first latitude = %f", track.Line[0][1])
	}
}

func TestParseFitUnsupported(t *testing.T) {
	path := writeFixture(t, "activity.fit", "binary")
	_, err := ParseFile(path)
	if err == nil || !strings.Contains(err.Error(), "FIT") {
		t.Errorf("FIT files need a pointed error, got %v", err)
	}
}

func TestParseUnknownExtension(t *testing.T) {
	path := writeFixture(t, "notes.txt", "hello")
	if _, err := ParseFile(path); err == nil {
		t.Error("unknown extensions must be rejected")
	}
}

func TestTrackBounds(t *testing.T) {
	path := writeFixture(t, "ride.gpx", gpxFixture)
	track, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b := track.Bounds()
	if b.North != 48.8580 || b.South != 48.8566 {
		t.Errorf("latitude extent = %f..%f", b.South, b.North)
	}
	if b.West != 2.3522 || b.East != 2.3545 {
		t.Errorf("longitude extent = %f..%f", b.West, b.East)
	}
}
