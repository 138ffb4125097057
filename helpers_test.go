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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
)

const testTolerance = 1.e-8

type ncAttr struct {
	name string
	val  interface{}
}

type ncVar struct {
	name  string
	dims  []string
	data  interface{} // []int16, []float32, []float64 or string
	attrs []ncAttr
}

type ncFile struct {
	dims    []string
	lengths []int // 0 marks the record dimension
	attrs   []ncAttr
	vars    []ncVar

	// streaming leaves the numrecs header field unset.
	streaming bool
}

// writeNC writes nc to path as a classic NetCDF file.
func writeNC(t *testing.T, path string, nc ncFile) {
	t.Helper()
	h := cdf.NewHeader(nc.dims, nc.lengths)
	for _, a := range nc.attrs {
		h.AddAttribute("", a.name, a.val)
	}
	for _, v := range nc.vars {
		var zero interface{}
		switch v.data.(type) {
		case string:
			zero = ""
		case []int16:
			zero = []int16{0}
		case []float32:
			zero = []float32{0}
		case []float64:
			zero = []float64{0}
		default:
			t.Fatalf("unsupported fixture type %T", v.data)
		}
		h.AddVariable(v.name, v.dims, zero)
		for _, a := range v.attrs {
			h.AddAttribute(v.name, a.name, a.val)
		}
	}
	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range nc.vars {
		w := f.Writer(v.name, nil, nil)
		if _, err := w.Write(v.data); err != nil && err != io.EOF {
			t.Fatalf("writing %s: %v", v.name, err)
		}
	}
	if !nc.streaming {
		if err := cdf.UpdateNumRecs(ff); err != nil {
			t.Fatal(err)
		}
	}
}

// grid describes a chlorophyll file with dimensions (time, lat, lon).
type grid struct {
	latName, lonName string
	lats, lons       []float64
	times            []float64
	record           bool
	streaming        bool

	// timeUnits defaults to days since 2020-01-01.
	timeUnits string

	// base is added to every chlorophyll value.
	base float32
}

// chlValue is the value of the fixture chlorophyll at the given indices.
func (g grid) chlValue(t, i, j int) float64 {
	return float64(g.base) + float64(t*100+i*10+j)
}

func (g grid) ncFile() ncFile {
	if g.latName == "" {
		g.latName = "lat"
	}
	if g.lonName == "" {
		g.lonName = "lon"
	}
	if g.timeUnits == "" {
		g.timeUnits = "days since 2020-01-01 00:00:00"
	}
	nt := len(g.times)
	if g.record {
		nt = 0
	}
	chl := make([]float32, 0, len(g.times)*len(g.lats)*len(g.lons))
	for t := range g.times {
		for i := range g.lats {
			for j := range g.lons {
				chl = append(chl, float32(g.chlValue(t, i, j)))
			}
		}
	}
	return ncFile{
		dims:      []string{"time", g.latName, g.lonName},
		lengths:   []int{nt, len(g.lats), len(g.lons)},
		attrs:     []ncAttr{{"title", "test chlorophyll"}},
		streaming: g.streaming,
		vars: []ncVar{
			{name: "time", dims: []string{"time"}, data: g.times,
				attrs: []ncAttr{{"units", g.timeUnits}}},
			{name: g.latName, dims: []string{g.latName}, data: g.lats,
				attrs: []ncAttr{{"units", "degrees_north"}}},
			{name: g.lonName, dims: []string{g.lonName}, data: g.lons,
				attrs: []ncAttr{{"units", "degrees_east"}}},
			{name: "chlor_a", dims: []string{"time", g.latName, g.lonName}, data: chl,
				attrs: []ncAttr{{"units", "mg m^-3"}}},
		},
	}
}

// write writes g to a file called name in dir and returns its path.
func (g grid) write(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeNC(t, path, g.ncFile())
	return path
}

// seq returns n values starting at start and increasing by step.
func seq(start, step float64, n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = start + float64(i)*step
	}
	return o
}

func mustLoad(t *testing.T, path string) *Dataset {
	t.Helper()
	ds, err := LoadChlorophyllData(path)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func mustData(t *testing.T, ds *Dataset, name string) []float64 {
	t.Helper()
	v, ok := ds.Variable(name)
	if !ok {
		t.Fatalf("missing variable %s", name)
	}
	d, err := v.Data()
	if err != nil {
		t.Fatal(err)
	}
	return d.Elements
}
