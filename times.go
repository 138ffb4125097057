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
	"math"
	"strings"
	"time"
)

// Times returns the values of the time coordinate of ds, decoded
// according to its "units" attribute, e.g. "days since 1970-01-01".
// Only the standard (Gregorian) calendar is supported.
func (ds *Dataset) Times() ([]time.Time, error) {
	if !ds.HasCoord(TimeDim) {
		return nil, &SchemaMismatchError{
			Op:     "decode times",
			Dim:    TimeDim,
			Names:  []string{TimeDim},
			Reason: "dataset has no such coordinate",
		}
	}
	v := ds.byName[TimeDim]
	units, ok := v.StringAttribute("units")
	if !ok {
		return nil, fmt.Errorf("chlorophyll: time coordinate has no units")
	}
	if cal, ok := v.StringAttribute("calendar"); ok {
		switch strings.ToLower(strings.TrimSpace(cal)) {
		case "standard", "gregorian", "proleptic_gregorian":
		default:
			return nil, fmt.Errorf("chlorophyll: unsupported calendar %q", cal)
		}
	}
	step, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	d, err := v.Data()
	if err != nil {
		return nil, err
	}
	o := make([]time.Time, len(d.Elements))
	for i, t := range d.Elements {
		if math.IsNaN(t) {
			return nil, fmt.Errorf("chlorophyll: time %d is missing", i)
		}
		secs := t * step
		whole := math.Floor(secs)
		o[i] = time.Unix(ref.Unix()+int64(whole), int64(math.Round((secs-whole)*1e9))).UTC()
	}
	return o, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2 15:4:5",
	"2006-01-02",
	"2006-1-2",
}

// parseTimeUnits parses CF time units of the form
// "<unit> since <reference time>", returning the length of one unit
// in seconds and the reference time.
func parseTimeUnits(units string) (float64, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("chlorophyll: invalid time units %q", units)
	}
	var step float64
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = 1
	case "minutes", "minute", "mins", "min":
		step = 60
	case "hours", "hour", "hrs", "hr", "h":
		step = 3600
	case "days", "day", "d":
		step = 86400
	default:
		return 0, time.Time{}, fmt.Errorf("chlorophyll: unsupported time unit %q", parts[0])
	}
	s := strings.TrimSpace(parts[1])
	s = strings.TrimSuffix(s, " UTC")
	for _, layout := range timeLayouts {
		if ref, err := time.Parse(layout, s); err == nil {
			return step, ref, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("chlorophyll: invalid reference time %q in time units", parts[1])
}
