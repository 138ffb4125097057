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

// Package chlorophyll loads gridded chlorophyll data from NetCDF files
// and extracts geographic subsets from it.
//
// Files are read with the classic NetCDF format reader in
// github.com/ctessum/cdf (NetCDF 4 and greater are not supported).
// Variable data are read lazily, so a Dataset returned by
// LoadChlorophyllData or LoadMultipleFiles keeps its files open until
// Close is called.
package chlorophyll

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Dimension is a named axis of a Dataset.
type Dimension struct {
	Name string
	Len  int
}

// Variable is a named, dimensioned array in a Dataset.
type Variable struct {
	Name string

	// Dims holds the names of the dimensions of the variable,
	// outermost first, and Shape holds their lengths.
	Dims  []string
	Shape []int

	// Attributes holds the attribute values as read from the file:
	// string, []uint8, []int16, []int32, []float32 or []float64.
	Attributes map[string]interface{}

	// char is set for CHAR variables, which hold text rather than numbers.
	char bool

	data *sparse.DenseArray
	load func() (*sparse.DenseArray, error)
}

// Data returns the values of v, reading them on first use.
// Values equal to the _FillValue or missing_value attributes are NaN
// and scale_factor and add_offset have been applied.
func (v *Variable) Data() (*sparse.DenseArray, error) {
	if v.data != nil {
		return v.data, nil
	}
	if v.char {
		return nil, fmt.Errorf("chlorophyll: variable %s is of type CHAR and has no numeric data", v.Name)
	}
	if v.load == nil {
		return nil, fmt.Errorf("chlorophyll: variable %s has no data source", v.Name)
	}
	d, err := v.load()
	if err != nil {
		return nil, err
	}
	v.data = d
	return d, nil
}

// Loaded returns whether the data of v are already in memory.
func (v *Variable) Loaded() bool { return v.data != nil }

// Len returns the number of elements in v.
func (v *Variable) Len() int { return product(v.Shape) }

// axis returns the position of dimension dim in v, or -1.
func (v *Variable) axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// StringAttribute returns the value of the CHAR attribute a.
func (v *Variable) StringAttribute(a string) (string, bool) {
	s, ok := v.Attributes[a].(string)
	return s, ok
}

// FloatAttribute returns the first value of the numeric attribute a.
func (v *Variable) FloatAttribute(a string) (float64, bool) {
	vals, ok := floatValues(v.Attributes[a])
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// derive returns a copy of v with the given shape whose data come from load.
func (v *Variable) derive(shape []int, load func() (*sparse.DenseArray, error)) *Variable {
	return &Variable{
		Name:       v.Name,
		Dims:       append([]string(nil), v.Dims...),
		Shape:      append([]int(nil), shape...),
		Attributes: copyAttributes(v.Attributes),
		char:       v.char,
		load:       load,
	}
}

// Dataset is a collection of variables sharing a set of named dimensions,
// such as the contents of one or more NetCDF files.
type Dataset struct {
	Dims       []Dimension
	Attributes map[string]interface{}

	vars   []*Variable
	byName map[string]*Variable

	// closers are the resources owned by the dataset.
	closers []io.Closer
}

// newDataset returns an empty dataset with a copy of attrs as its
// global attributes.
func newDataset(dims []Dimension, attrs map[string]interface{}) *Dataset {
	return &Dataset{
		Dims:       dims,
		Attributes: copyAttributes(attrs),
		byName:     make(map[string]*Variable),
	}
}

func copyAttributes(attrs map[string]interface{}) map[string]interface{} {
	o := make(map[string]interface{}, len(attrs))
	for k, a := range attrs {
		o[k] = a
	}
	return o
}

func (ds *Dataset) addVariable(v *Variable) {
	ds.vars = append(ds.vars, v)
	ds.byName[v.Name] = v
}

// Variables returns the variables in ds in file order.
func (ds *Dataset) Variables() []*Variable {
	return append([]*Variable(nil), ds.vars...)
}

// Variable returns the variable with the given name.
func (ds *Dataset) Variable(name string) (*Variable, bool) {
	v, ok := ds.byName[name]
	return v, ok
}

// DimLen returns the length of dimension name.
func (ds *Dataset) DimLen(name string) (int, bool) {
	for _, d := range ds.Dims {
		if d.Name == name {
			return d.Len, true
		}
	}
	return 0, false
}

// HasCoord returns whether name is a coordinate variable of ds, i.e.
// a one-dimensional variable whose dimension has its own name.
func (ds *Dataset) HasCoord(name string) bool {
	v, ok := ds.byName[name]
	return ok && len(v.Dims) == 1 && v.Dims[0] == name
}

// Coords returns the names of the coordinate variables in ds.
func (ds *Dataset) Coords() []string {
	var o []string
	for _, v := range ds.vars {
		if ds.HasCoord(v.Name) {
			o = append(o, v.Name)
		}
	}
	return o
}

// DataVars returns the names of the variables in ds that are not coordinates.
func (ds *Dataset) DataVars() []string {
	var o []string
	for _, v := range ds.vars {
		if !ds.HasCoord(v.Name) {
			o = append(o, v.Name)
		}
	}
	return o
}

// Load reads the data of every variable into memory, after which ds
// no longer needs its files.
func (ds *Dataset) Load() error {
	for _, v := range ds.vars {
		if v.char {
			continue
		}
		if _, err := v.Data(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the files held by ds. Datasets derived from ds, for
// example by subsetting, must not read data that are not loaded yet
// after ds is closed. Calling Close more than once is allowed.
func (ds *Dataset) Close() error {
	var first error
	for _, c := range ds.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	ds.closers = nil
	return first
}

// Bounds returns the latitude and longitude extent of ds, with
// longitude as X and latitude as Y.
func (ds *Dataset) Bounds() (*geom.Bounds, error) {
	lats, err := ds.coordValues(LatitudeAliases)
	if err != nil {
		return nil, err
	}
	lons, err := ds.coordValues(LongitudeAliases)
	if err != nil {
		return nil, err
	}
	if len(lats) == 0 || len(lons) == 0 {
		return nil, fmt.Errorf("chlorophyll: dataset has %d latitudes and %d longitudes; can't compute bounds", len(lats), len(lons))
	}
	return &geom.Bounds{
		Min: geom.Point{X: floats.Min(lons), Y: floats.Min(lats)},
		Max: geom.Point{X: floats.Max(lons), Y: floats.Max(lats)},
	}, nil
}

// coordValues returns the values of the first coordinate among aliases.
func (ds *Dataset) coordValues(aliases []string) ([]float64, error) {
	name, err := ds.ResolveCoord(aliases...)
	if err != nil {
		return nil, err
	}
	d, err := ds.byName[name].Data()
	if err != nil {
		return nil, err
	}
	return d.Elements, nil
}

// String returns a summary of the dimensions and variables in ds.
// It does not read any data.
func (ds *Dataset) String() string {
	b := new(bytes.Buffer)
	fmt.Fprintln(b, "dimensions:")
	for _, d := range ds.Dims {
		fmt.Fprintf(b, "\t%s = %d\n", d.Name, d.Len)
	}
	fmt.Fprintln(b, "coordinates:")
	for _, c := range ds.Coords() {
		fmt.Fprintf(b, "\t%s\n", ds.byName[c].signature())
	}
	fmt.Fprintln(b, "data variables:")
	for _, name := range ds.DataVars() {
		v := ds.byName[name]
		fmt.Fprintf(b, "\t%s", v.signature())
		if u, ok := v.StringAttribute("units"); ok {
			fmt.Fprintf(b, " [%s]", u)
		}
		fmt.Fprintln(b)
	}
	return b.String()
}

func (v *Variable) signature() string {
	return fmt.Sprintf("%s(%s)", v.Name, strings.Join(v.Dims, ", "))
}

func product(s []int) int {
	n := 1
	for _, v := range s {
		n *= v
	}
	return n
}
