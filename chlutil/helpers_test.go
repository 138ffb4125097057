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

package chlutil

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
)

// writeChl writes a chlorophyll file with one value per time step and
// grid cell to dir/name and returns its path.
func writeChl(t *testing.T, dir, name string, lats, lons, times []float64) string {
	t.Helper()
	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{len(times), len(lats), len(lons)})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "days since 2020-01-01")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddVariable("chlor_a", []string{"time", "lat", "lon"}, []float32{0})
	h.AddAttribute("chlor_a", "units", "mg m^-3")
	h.Define()

	path := filepath.Join(dir, name)
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	chl := make([]float32, len(times)*len(lats)*len(lons))
	for i := range chl {
		chl[i] = float32(i)
	}
	for name, data := range map[string]interface{}{"time": times, "lat": lats, "lon": lons, "chlor_a": chl} {
		if _, err := f.Writer(name, nil, nil).Write(data); err != nil && err != io.EOF {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
	return path
}

func seq(start, step float64, n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = start + float64(i)*step
	}
	return o
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}
