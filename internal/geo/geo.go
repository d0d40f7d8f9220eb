// Package geo projects simulated projectile trajectories onto real-world
// coordinates. A run can carry a geodetic anchor (origin latitude/longitude
// plus a launch azimuth); the projector maps downrange meters from that
// anchor onto WGS84 positions and builds simplefeatures geometries for
// recording exports.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/motionlab/kinema/pkg/core"
)

// Meters per degree of latitude on the WGS84 ellipsoid, good enough for
// the sub-kilometer tracks a classroom projectile produces.
const metersPerDegree = 111320.0

// ErrInvalidOrigin is returned when an origin string cannot be parsed.
var ErrInvalidOrigin = errors.New("invalid origin provided")

// OriginFromString parses "lat,lon" or "lat,lon,azimuthDeg" into a Scene
// anchor. Extra components are ignored.
func OriginFromString(s string) (core.Scene, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return core.Scene{}, ErrInvalidOrigin
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return core.Scene{}, ErrInvalidOrigin
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return core.Scene{}, ErrInvalidOrigin
	}
	var azimuth float64
	if len(parts) > 2 {
		azimuth, err = strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return core.Scene{}, ErrInvalidOrigin
		}
	}
	return core.Scene{OriginLat: lat, OriginLon: lon, AzimuthDeg: azimuth}, nil
}

// WebMercator converts a WGS84 (EPSG 4326) position into Web Mercator
// (EPSG 3857) for map overlay.
func WebMercator(lon, lat float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	pt, err := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
	if err != nil {
		// Non-finite input; the empty point scans as NULL geometry.
		return geom.Point{}
	}
	return pt
}

// Geodetic converts a stored Web Mercator (EPSG 3857) point back to a
// WGS84 lon/lat pair. Scene anchors are persisted as 3857 geometry, so
// reads go through here to recover the origin coordinates.
func Geodetic(p geom.Point) (lon, lat float64) {
	xy, ok := p.XY()
	if !ok {
		return 0, 0
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ = f(xy.X, xy.Y, 0)
	return lon, lat
}

// Projector maps a projectile's local coordinates (downrange meters X,
// height meters Y) onto geodetic positions. A nil anchor leaves tracks in
// local meters.
type Projector struct {
	scene    *core.Scene
	sinAz    float64
	cosAz    float64
	lonScale float64
}

// NewProjector creates a projector for the given anchor. scene may be nil.
func NewProjector(scene *core.Scene) *Projector {
	p := &Projector{scene: scene}
	if scene != nil {
		az := scene.AzimuthDeg * math.Pi / 180
		p.sinAz = math.Sin(az)
		p.cosAz = math.Cos(az)
		p.lonScale = math.Cos(scene.OriginLat * math.Pi / 180)
	}
	return p
}

// Anchored reports whether the projector has a geodetic origin.
func (p *Projector) Anchored() bool {
	return p.scene != nil
}

// Project maps a downrange distance in meters to a WGS84 position along
// the anchor's azimuth. Azimuth is measured clockwise from true north.
func (p *Projector) Project(downrange float64) (lon, lat float64) {
	east := downrange * p.sinAz
	north := downrange * p.cosAz
	lat = p.scene.OriginLat + north/metersPerDegree
	lon = p.scene.OriginLon + east/(metersPerDegree*p.lonScale)
	return lon, lat
}

// Track builds the ground track for a run's frames. Anchored projectors
// produce WGS84 lon/lat points; unanchored ones keep local meters with
// height on the second axis. Fewer than two frames cannot form a line.
func (p *Projector) Track(frames []core.Frame) (geom.LineString, error) {
	if len(frames) < 2 {
		return geom.LineString{}, errors.New("a track needs at least 2 frames")
	}

	flat := make([]float64, 0, len(frames)*2)
	for _, f := range frames {
		if p.scene != nil {
			lon, lat := p.Project(f.X)
			flat = append(flat, lon, lat)
		} else {
			flat = append(flat, f.X, f.Y)
		}
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq)
}

// TrackWKT renders the ground track as WKT for recording exports. Runs
// with fewer than two frames export an empty string.
func (p *Projector) TrackWKT(frames []core.Frame) string {
	ls, err := p.Track(frames)
	if err != nil {
		return ""
	}
	return ls.AsText()
}
