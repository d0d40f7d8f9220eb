package geo

import (
	"errors"
	"math"
	"strings"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/motionlab/kinema/pkg/core"
)

func TestOriginFromString_Valid(t *testing.T) {
	scene, err := OriginFromString("48.8584,2.2945,90")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.OriginLat != 48.8584 {
		t.Errorf("expected lat=48.8584, got %f", scene.OriginLat)
	}
	if scene.OriginLon != 2.2945 {
		t.Errorf("expected lon=2.2945, got %f", scene.OriginLon)
	}
	if scene.AzimuthDeg != 90 {
		t.Errorf("expected azimuth=90, got %f", scene.AzimuthDeg)
	}
}

func TestOriginFromString_DefaultAzimuth(t *testing.T) {
	scene, err := OriginFromString("-33.8568,151.2153")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.AzimuthDeg != 0 {
		t.Errorf("expected azimuth=0, got %f", scene.AzimuthDeg)
	}
}

func TestOriginFromString_ExtraComponentsIgnored(t *testing.T) {
	scene, err := OriginFromString("10,20,30,extra")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.AzimuthDeg != 30 {
		t.Errorf("expected azimuth=30, got %f", scene.AzimuthDeg)
	}
}

func TestOriginFromString_Invalid(t *testing.T) {
	for _, input := range []string{"", "10", "abc,20", "10,xyz", "10,20,bad"} {
		if _, err := OriginFromString(input); !errors.Is(err, ErrInvalidOrigin) {
			t.Errorf("%q: expected ErrInvalidOrigin, got %v", input, err)
		}
	}
}

func TestWebMercator_Origin(t *testing.T) {
	point := WebMercator(0, 0)
	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 0 || coords.Y != 0 {
		t.Errorf("expected (0,0) at origin, got (%f,%f)", coords.X, coords.Y)
	}
}

func TestWebMercator_Hemispheres(t *testing.T) {
	point := WebMercator(-45, -30)
	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X >= 0 {
		t.Errorf("expected negative X for western hemisphere, got %f", coords.X)
	}
	if coords.Y >= 0 {
		t.Errorf("expected negative Y for southern hemisphere, got %f", coords.Y)
	}
}

func TestGeodetic_RoundTrip(t *testing.T) {
	lon, lat := Geodetic(WebMercator(7.5, 45.25))
	if math.Abs(lon-7.5) > 1e-6 || math.Abs(lat-45.25) > 1e-6 {
		t.Errorf("round trip drifted: got (%f,%f)", lon, lat)
	}
}

func TestGeodetic_EmptyPoint(t *testing.T) {
	lon, lat := Geodetic(geom.Point{})
	if lon != 0 || lat != 0 {
		t.Errorf("empty point should map to (0,0), got (%f,%f)", lon, lat)
	}
}

func TestProject_NorthAzimuth(t *testing.T) {
	p := NewProjector(&core.Scene{OriginLat: 45, OriginLon: 7, AzimuthDeg: 0})

	lon, lat := p.Project(1113.2)
	if math.Abs(lat-45.01) > 1e-6 {
		t.Errorf("expected lat=45.01, got %f", lat)
	}
	if math.Abs(lon-7) > 1e-9 {
		t.Errorf("expected lon unchanged at 7, got %f", lon)
	}
}

func TestProject_EastAzimuth(t *testing.T) {
	p := NewProjector(&core.Scene{OriginLat: 0, OriginLon: 10, AzimuthDeg: 90})

	lon, lat := p.Project(1113.2)
	if math.Abs(lon-10.01) > 1e-6 {
		t.Errorf("expected lon=10.01, got %f", lon)
	}
	if math.Abs(lat) > 1e-9 {
		t.Errorf("expected lat unchanged at 0, got %f", lat)
	}
}

func TestProject_LongitudeScalesWithLatitude(t *testing.T) {
	equator := NewProjector(&core.Scene{OriginLat: 0, AzimuthDeg: 90})
	north := NewProjector(&core.Scene{OriginLat: 60, AzimuthDeg: 90})

	lonEq, _ := equator.Project(1000)
	lonNo, _ := north.Project(1000)

	// One east-west meter spans more degrees of longitude at 60N.
	// OriginLon is 0 for both, so the deltas compare directly.
	if lonNo <= lonEq {
		t.Errorf("expected larger longitude delta at 60N: equator=%f north=%f", lonEq, lonNo)
	}
}

func TestTrack_TooFewFrames(t *testing.T) {
	p := NewProjector(nil)
	if _, err := p.Track([]core.Frame{{X: 0, Y: 0}}); err == nil {
		t.Fatal("expected error for single frame")
	}
}

func TestTrack_DegeneratePoints(t *testing.T) {
	p := NewProjector(nil)
	frames := []core.Frame{
		{X: 5, Y: 2},
		{X: 5, Y: 2},
	}
	if _, err := p.Track(frames); err == nil {
		t.Fatal("expected error for a track with no distinct points")
	}
	if got := p.TrackWKT(frames); got != "" {
		t.Errorf("expected empty WKT for degenerate track, got %q", got)
	}
}

func TestTrack_LocalMeters(t *testing.T) {
	p := NewProjector(nil)
	frames := []core.Frame{
		{X: 0, Y: 0},
		{X: 10, Y: 4.9},
		{X: 20, Y: 0},
	}
	ls, err := p.Track(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := ls.Coordinates()
	if seq.Length() != 3 {
		t.Fatalf("expected 3 points, got %d", seq.Length())
	}
	mid := seq.GetXY(1)
	if mid.X != 10 || mid.Y != 4.9 {
		t.Errorf("expected midpoint (10,4.9), got (%f,%f)", mid.X, mid.Y)
	}
}

func TestTrack_Anchored(t *testing.T) {
	p := NewProjector(&core.Scene{OriginLat: 45, OriginLon: 7, AzimuthDeg: 0})
	frames := []core.Frame{
		{X: 0, Y: 0},
		{X: 1113.2, Y: 12},
	}
	ls, err := p.Track(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := ls.Coordinates()
	last := seq.GetXY(1)
	if math.Abs(last.Y-45.01) > 1e-6 {
		t.Errorf("expected end latitude 45.01, got %f", last.Y)
	}
	if math.Abs(last.X-7) > 1e-9 {
		t.Errorf("expected end longitude 7, got %f", last.X)
	}
}

func TestTrackWKT(t *testing.T) {
	p := NewProjector(nil)

	if got := p.TrackWKT([]core.Frame{{X: 1}}); got != "" {
		t.Errorf("expected empty WKT for short track, got %q", got)
	}

	wkt := p.TrackWKT([]core.Frame{{X: 0, Y: 0}, {X: 20, Y: 0}})
	if !strings.HasPrefix(wkt, "LINESTRING") {
		t.Errorf("expected LINESTRING WKT, got %q", wkt)
	}
}
