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
	"reflect"
	"sort"
	"strings"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// TimeDim is the dimension along which LoadMultipleFiles concatenates files.
const TimeDim = "time"

// coordTolerance is the largest difference allowed between the values
// of a coordinate in datasets being concatenated.
const coordTolerance = 1e-9

// Concat joins datasets along dimension dim, in the order given.
// Variables that use dim are concatenated along it, and all of their
// other dimensions must match. Variables that don't use dim are taken
// from the first dataset and must have the same shape in every dataset;
// coordinates among them, such as latitude and longitude, must also have
// the same values. If the coordinate of dim has CF time units that differ
// between datasets, the values of each dataset are converted to the units
// of the first. Global attributes are taken from the first dataset.
//
// Apart from the coordinates that are compared, the data are not read
// until they are requested from the result, and the inputs are not
// modified. The result does not own the inputs:
// closing it does not close them.
func Concat(datasets []*Dataset, dim string) (*Dataset, error) {
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}
	total := 0
	for i, ds := range datasets {
		n, ok := ds.DimLen(dim)
		if !ok {
			return nil, &SchemaMismatchError{
				Op:     "concat",
				Dim:    dim,
				Reason: fmt.Sprintf("dataset %d does not have the concatenation dimension", i),
			}
		}
		total += n
	}

	first := datasets[0]
	for i, ds := range datasets[1:] {
		if a, b := varNames(first), varNames(ds); !reflect.DeepEqual(a, b) {
			return nil, &SchemaMismatchError{
				Op:     "concat",
				Dim:    dim,
				Names:  symmetricDifference(a, b),
				Reason: fmt.Sprintf("datasets 0 and %d have different variables", i+1),
			}
		}
	}

	dims := make([]Dimension, len(first.Dims))
	for i, d := range first.Dims {
		if d.Name == dim {
			d.Len = total
		}
		dims[i] = d
	}
	out := newDataset(dims, first.Attributes)

	for _, v := range first.vars {
		parts := make([]*Variable, len(datasets))
		for i, ds := range datasets {
			parts[i] = ds.byName[v.Name]
		}
		cv, err := concatVariable(parts, dim, first.HasCoord(v.Name))
		if err != nil {
			return nil, err
		}
		out.addVariable(cv)
	}
	return out, nil
}

// concatVariable returns a variable that joins parts along dim.
// coord is whether the variable is a coordinate.
func concatVariable(parts []*Variable, dim string, coord bool) (*Variable, error) {
	v := parts[0]
	axis := v.axis(dim)
	for i, p := range parts[1:] {
		if !reflect.DeepEqual(p.Dims, v.Dims) {
			return nil, &SchemaMismatchError{
				Op:     "concat",
				Dim:    dim,
				Names:  []string{v.Name},
				Reason: fmt.Sprintf("variable has dimensions %v in dataset 0 but %v in dataset %d", v.Dims, p.Dims, i+1),
			}
		}
		for j := range v.Shape {
			if j != axis && p.Shape[j] != v.Shape[j] {
				return nil, &SchemaMismatchError{
					Op:     "concat",
					Dim:    dim,
					Names:  []string{v.Name},
					Reason: fmt.Sprintf("variable has shape %v in dataset 0 but %v in dataset %d", v.Shape, p.Shape, i+1),
				}
			}
		}
	}
	if axis < 0 {
		if coord {
			if err := sameValues(parts, dim); err != nil {
				return nil, err
			}
		}
		return v.derive(v.Shape, v.Data), nil
	}
	if coord {
		var err error
		if parts, err = alignTimeUnits(parts, dim); err != nil {
			return nil, err
		}
	}

	shape := append([]int(nil), v.Shape...)
	shape[axis] = 0
	for _, p := range parts {
		shape[axis] += p.Shape[axis]
	}
	return v.derive(shape, func() (*sparse.DenseArray, error) {
		arrays := make([]*sparse.DenseArray, len(parts))
		for i, p := range parts {
			d, err := p.Data()
			if err != nil {
				return nil, err
			}
			arrays[i] = d
		}
		return concatArrays(arrays, axis, shape), nil
	}), nil
}

// sameValues returns an error if the values of the coordinate parts
// differ between datasets.
func sameValues(parts []*Variable, dim string) error {
	first, err := parts[0].Data()
	if err != nil {
		return fmt.Errorf("chlorophyll: concat: %w", err)
	}
	for i, p := range parts[1:] {
		d, err := p.Data()
		if err != nil {
			return fmt.Errorf("chlorophyll: concat: %w", err)
		}
		if !floats.EqualApprox(first.Elements, d.Elements, coordTolerance) {
			return &SchemaMismatchError{
				Op:     "concat",
				Dim:    dim,
				Names:  []string{p.Name},
				Reason: fmt.Sprintf("coordinate has different values in datasets 0 and %d", i+1),
			}
		}
	}
	return nil
}

// alignTimeUnits returns parts with the values of each part converted
// to the time units of the first part, where the units differ.
// Parts with unparseable or missing units, or with different calendars,
// can't be aligned.
func alignTimeUnits(parts []*Variable, dim string) ([]*Variable, error) {
	v := parts[0]
	units, hasUnits := v.StringAttribute("units")
	mismatch := func(i int, reason string, args ...interface{}) error {
		return &SchemaMismatchError{
			Op:     "concat",
			Dim:    dim,
			Names:  []string{v.Name},
			Reason: fmt.Sprintf("dataset %d: ", i) + fmt.Sprintf(reason, args...),
		}
	}
	out := append([]*Variable(nil), parts...)
	for i, p := range parts[1:] {
		if c0, c := calendar(v), calendar(p); c0 != c {
			return nil, mismatch(i+1, "calendar %q does not match %q", c, c0)
		}
		u, ok := p.StringAttribute("units")
		if ok == hasUnits && u == units {
			continue
		}
		step0, ref0, err := parseTimeUnits(units)
		if err != nil {
			return nil, mismatch(i+1, "units %q can't be converted to %q", u, units)
		}
		step, ref, err := parseTimeUnits(u)
		if err != nil {
			return nil, mismatch(i+1, "units %q can't be converted to %q", u, units)
		}
		scale := step / step0
		shift := (float64(ref.Unix()-ref0.Unix()) + float64(ref.Nanosecond()-ref0.Nanosecond())/1e9) / step0
		src := p
		out[i+1] = p.derive(p.Shape, func() (*sparse.DenseArray, error) {
			d, err := src.Data()
			if err != nil {
				return nil, err
			}
			o := sparse.ZerosDense(append([]int(nil), d.Shape...)...)
			for j, t := range d.Elements {
				o.Elements[j] = t*scale + shift
			}
			return o, nil
		})
	}
	return out, nil
}

// calendar returns the normalized CF calendar of v.
func calendar(v *Variable) string {
	c, _ := v.StringAttribute("calendar")
	switch c = strings.ToLower(strings.TrimSpace(c)); c {
	case "", "gregorian":
		return "standard"
	default:
		return c
	}
}

// concatArrays joins arrays along axis into an array of the given shape.
func concatArrays(arrays []*sparse.DenseArray, axis int, shape []int) *sparse.DenseArray {
	out := sparse.ZerosDense(append([]int(nil), shape...)...)
	outer := product(shape[:axis])
	inner := product(shape[axis+1:])
	pos := 0
	for o := 0; o < outer; o++ {
		for _, a := range arrays {
			block := a.Shape[axis] * inner
			pos += copy(out.Elements[pos:], a.Elements[o*block:(o+1)*block])
		}
	}
	return out
}

func varNames(ds *Dataset) []string {
	names := make([]string, len(ds.vars))
	for i, v := range ds.vars {
		names[i] = v.Name
	}
	sort.Strings(names)
	return names
}

// symmetricDifference returns the names that are in exactly one of
// the sorted lists a and b.
func symmetricDifference(a, b []string) []string {
	count := make(map[string]int)
	for _, n := range a {
		count[n]++
	}
	for _, n := range b {
		count[n]--
	}
	var o []string
	for n, c := range count {
		if c != 0 {
			o = append(o, n)
		}
	}
	sort.Strings(o)
	return o
}
