// Package geo converts planned routes into GeoJSON and WKB geometries.
package geo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"fleetopt/internal/model"
)

func coord(l model.Location) geom.Coord { return geom.Coord{l.Longitude, l.Latitude} }

// RouteFeatures returns one Point feature per stop, in visiting order, and
// a LineString feature for the path when the route has at least two stops.
func RouteFeatures(r model.Route) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	if len(r.Stops) >= 2 {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.ID,
			Geometry: pathOf(r.Stops),
			Properties: map[string]interface{}{
				"kind":           "path",
				"vehicle":        r.Vehicle.ID,
				"status":         r.Status,
				"algorithm":      r.Algorithm,
				"total_distance": r.TotalDistance,
				"estimated_time": r.EstimatedTime,
			},
		})
	}
	for i, s := range r.Stops {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("%s/%d", r.ID, i),
			Geometry: geom.NewPoint(geom.XY).MustSetCoords(coord(s)),
			Properties: map[string]interface{}{
				"kind":    "stop",
				"seq":     i,
				"name":    s.Name,
				"address": s.Address,
				"origin":  i == 0,
			},
		})
	}
	return fc
}

// MarshalRoute encodes RouteFeatures as JSON.
func MarshalRoute(r model.Route) ([]byte, error) {
	return RouteFeatures(r).MarshalJSON()
}

func pathOf(stops []model.Location) *geom.LineString {
	coords := make([]geom.Coord, len(stops))
	for i, s := range stops {
		coords[i] = coord(s)
	}
	return geom.NewLineString(geom.XY).MustSetCoords(coords)
}

// PathWKB encodes the stop sequence as a little-endian WKB LineString.
// Routes with fewer than two stops have no path and encode to nil.
func PathWKB(stops []model.Location) ([]byte, error) {
	if len(stops) < 2 {
		return nil, nil
	}
	return wkb.Marshal(pathOf(stops), binary.LittleEndian)
}

// DecodePath returns the [lon, lat] pairs of a WKB LineString.
func DecodePath(b []byte) ([][2]float64, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, errors.New("path geometry is not a LineString")
	}
	out := make([][2]float64, ls.NumCoords())
	for i := range out {
		c := ls.Coord(i)
		out[i] = [2]float64{c.X(), c.Y()}
	}
	return out, nil
}
