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
	"errors"
	"testing"
	"time"
)

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units string
		step  float64
		ref   time.Time
		err   bool
	}{
		{units: "days since 1970-01-01", step: 86400, ref: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{units: "hours since 2002-07-04 00:00:00", step: 3600, ref: time.Date(2002, 7, 4, 0, 0, 0, 0, time.UTC)},
		{units: "seconds since 1981-01-01T00:00:00Z", step: 1, ref: time.Date(1981, 1, 1, 0, 0, 0, 0, time.UTC)},
		{units: "minutes since 2000-1-1 0:0:0", step: 60, ref: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{units: "days since 1900-01-01 00:00:00 UTC", step: 86400, ref: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{units: "fortnights since 1970-01-01", err: true},
		{units: "days", err: true},
		{units: "days since yesterday", err: true},
	}
	for _, test := range tests {
		step, ref, err := parseTimeUnits(test.units)
		if test.err {
			if err == nil {
				t.Errorf("%q: want an error", test.units)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", test.units, err)
			continue
		}
		if step != test.step || !ref.Equal(test.ref) {
			t.Errorf("%q: have (%g, %v), want (%g, %v)", test.units, step, ref, test.step, test.ref)
		}
	}
}

func TestTimes(t *testing.T) {
	dir := t.TempDir()
	g := grid{lats: seq(30, 1, 2), lons: seq(0, 1, 2), times: []float64{0, 1.5, 31}}
	ds := mustLoad(t, g.write(t, dir, "a.nc"))
	defer ds.Close()

	times, err := ds.Times()
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if len(times) != len(want) {
		t.Fatalf("have %d times, want %d", len(times), len(want))
	}
	for i := range want {
		if !times[i].Equal(want[i]) {
			t.Errorf("time %d: %v != %v", i, times[i], want[i])
		}
	}

	noTime := memDataset([]Dimension{{"x", 1}}, memVar("x", []string{"x"}, []int{1}, 0))
	if _, err := noTime.Times(); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("want ErrSchemaMismatch, have %v", err)
	}
}
