/*
Copyright © 2019 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package chlorophyll

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Range is an inclusive range of coordinate values.
type Range struct {
	Min, Max float64
}

// Contains returns whether Min <= v <= Max.
func (r Range) Contains(v float64) bool { return r.Min <= v && v <= r.Max }

func (r Range) String() string { return fmt.Sprintf("[%g, %g]", r.Min, r.Max) }

var (
	// LatitudeAliases are the names a latitude coordinate may have,
	// in order of preference.
	LatitudeAliases = []string{"lat", "latitude"}

	// LongitudeAliases are the names a longitude coordinate may have,
	// in order of preference.
	LongitudeAliases = []string{"lon", "longitude"}
)

// The bounding box of California, in degrees.
var (
	CaliforniaLatitude  = Range{Min: 32, Max: 38}
	CaliforniaLongitude = Range{Min: -124, Max: -118}
)

// ResolveCoord returns the first of names that is a coordinate of ds.
func (ds *Dataset) ResolveCoord(names ...string) (string, error) {
	for _, n := range names {
		if ds.HasCoord(n) {
			return n, nil
		}
	}
	return "", &SchemaMismatchError{
		Op:     "resolve coordinate",
		Names:  append([]string(nil), names...),
		Reason: "dataset has none of the coordinates",
	}
}

// EffectiveLonRange adjusts the requested longitude range r to the
// convention of a longitude coordinate whose smallest value is lonMin.
// If lonMin >= 0 the coordinate is assumed to run from 0 to 360, and
// 360 is added to each negative bound.
//
// A range that crosses the prime meridian, such as [-10, 10], becomes
// [350, 10] and selects nothing.
func EffectiveLonRange(lonMin float64, r Range) Range {
	if lonMin >= 0 {
		if r.Min < 0 {
			r.Min += 360
		}
		if r.Max < 0 {
			r.Max += 360
		}
	}
	return r
}

// Subset returns the part of ds within the given latitude and longitude
// ranges. The latitude and longitude coordinates are found through
// LatitudeAliases and LongitudeAliases, and lon is converted to the
// longitude convention of ds with EffectiveLonRange.
// Every index whose coordinate value is within a range is kept,
// in the order stored in ds.
func Subset(ds *Dataset, lat, lon Range) (*Dataset, error) {
	latName, err := ds.ResolveCoord(LatitudeAliases...)
	if err != nil {
		return nil, err
	}
	lonName, err := ds.ResolveCoord(LongitudeAliases...)
	if err != nil {
		return nil, err
	}
	lons, err := ds.byName[lonName].Data()
	if err != nil {
		return nil, err
	}
	if len(lons.Elements) > 0 {
		lon = EffectiveLonRange(floats.Min(lons.Elements), lon)
	}

	out, err := ds.SelectRange(latName, lat)
	if err != nil {
		return nil, err
	}
	return out.SelectRange(lonName, lon)
}

// CaliforniaSubset returns the part of ds within the bounding box of California.
func CaliforniaSubset(ds *Dataset) (*Dataset, error) {
	return Subset(ds, CaliforniaLatitude, CaliforniaLongitude)
}

// SubsetBounds is like Subset, with longitude as X and latitude as Y.
func SubsetBounds(ds *Dataset, b *geom.Bounds) (*Dataset, error) {
	return Subset(ds,
		Range{Min: b.Min.Y, Max: b.Max.Y},
		Range{Min: b.Min.X, Max: b.Max.X},
	)
}

// SelectRange returns the part of ds where the values of coordinate dim
// are within r.
func (ds *Dataset) SelectRange(dim string, r Range) (*Dataset, error) {
	if !ds.HasCoord(dim) {
		return nil, &SchemaMismatchError{
			Op:     "select",
			Dim:    dim,
			Names:  []string{dim},
			Reason: "dataset has no such coordinate",
		}
	}
	coord, err := ds.byName[dim].Data()
	if err != nil {
		return nil, err
	}
	var index []int
	for i, v := range coord.Elements {
		if r.Contains(v) {
			index = append(index, i)
		}
	}
	return ds.isel(dim, index), nil
}

// isel returns a view of ds containing only the given indices of dim.
func (ds *Dataset) isel(dim string, index []int) *Dataset {
	dims := make([]Dimension, len(ds.Dims))
	for i, d := range ds.Dims {
		if d.Name == dim {
			d.Len = len(index)
		}
		dims[i] = d
	}
	out := newDataset(dims, ds.Attributes)
	for _, v := range ds.vars {
		axis := v.axis(dim)
		if axis < 0 {
			out.addVariable(v.derive(v.Shape, v.Data))
			continue
		}
		v := v
		shape := append([]int(nil), v.Shape...)
		shape[axis] = len(index)
		out.addVariable(v.derive(shape, func() (*sparse.DenseArray, error) {
			d, err := v.Data()
			if err != nil {
				return nil, err
			}
			return take(d, axis, index), nil
		}))
	}
	return out
}

// take returns the elements of a at the given indices along axis.
func take(a *sparse.DenseArray, axis int, index []int) *sparse.DenseArray {
	shape := append([]int(nil), a.Shape...)
	shape[axis] = len(index)
	out := sparse.ZerosDense(shape...)
	outer := product(a.Shape[:axis])
	inner := product(a.Shape[axis+1:])
	n := a.Shape[axis]
	pos := 0
	for o := 0; o < outer; o++ {
		for _, i := range index {
			start := (o*n + i) * inner
			pos += copy(out.Elements[pos:], a.Elements[start:start+inner])
		}
	}
	return out
}
