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
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/chlorophyll"
	"github.com/spf13/cast"
)

// Region is a named latitude/longitude bounding box.
type Region struct {
	Name     string
	Lat, Lon chlorophyll.Range
}

func (r Region) String() string {
	return fmt.Sprintf("%s (lat %v, lon %v)", r.Name, r.Lat, r.Lon)
}

// DefaultRegions returns the built-in regions.
func DefaultRegions() map[string]Region {
	return map[string]Region{
		"california": {
			Name: "california",
			Lat:  chlorophyll.CaliforniaLatitude,
			Lon:  chlorophyll.CaliforniaLongitude,
		},
	}
}

// LoadRegions returns the built-in regions plus those in the TOML file
// at path, which take precedence. Each table in the file is a region:
//
//	[monterey]
//	lat = [36.0, 37.2]
//	lon = [-122.6, -121.7]
//
// Region names are case-insensitive. If path is empty, only the
// built-in regions are returned.
func LoadRegions(path string) (map[string]Region, error) {
	regions := DefaultRegions()
	if path == "" {
		return regions, nil
	}
	var file map[string]struct {
		Lat []interface{} `toml:"lat"`
		Lon []interface{} `toml:"lon"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("chlutil: reading region file %s: %w", path, err)
	}
	for name, r := range file {
		lat, err := toRange(r.Lat)
		if err != nil {
			return nil, fmt.Errorf("chlutil: region %s latitude: %w", name, err)
		}
		lon, err := toRange(r.Lon)
		if err != nil {
			return nil, fmt.Errorf("chlutil: region %s longitude: %w", name, err)
		}
		name = strings.ToLower(name)
		regions[name] = Region{Name: name, Lat: lat, Lon: lon}
	}
	return regions, nil
}

// toRange converts a [min, max] pair of TOML numbers to a range.
func toRange(v []interface{}) (chlorophyll.Range, error) {
	if len(v) != 2 {
		return chlorophyll.Range{}, fmt.Errorf("want [min, max], have %d values", len(v))
	}
	min, err := cast.ToFloat64E(v[0])
	if err != nil {
		return chlorophyll.Range{}, err
	}
	max, err := cast.ToFloat64E(v[1])
	if err != nil {
		return chlorophyll.Range{}, err
	}
	if min > max {
		return chlorophyll.Range{}, fmt.Errorf("minimum %g is greater than maximum %g", min, max)
	}
	return chlorophyll.Range{Min: min, Max: max}, nil
}

func regionNames(regions map[string]Region) []string {
	names := make([]string, 0, len(regions))
	for n := range regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
