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
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/spatialmodel/chlorophyll"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// inputFiles returns the local paths of the files to load: args if
// given, else the Files option, else the files in DataDir matching
// Pattern. Remote files are copied to a temporary directory, which
// is removed by the returned cleanup function.
func (cfg *Cfg) inputFiles(ctx context.Context, args []string) ([]string, func(), error) {
	nothing := func() {}
	files := expandStringSlice(append([]string(nil), args...))
	if len(files) == 0 {
		f, err := cast.ToStringSliceE(cfg.Get("Files"))
		if err != nil {
			return nil, nothing, fmt.Errorf("chlutil: invalid Files option: %v", err)
		}
		files = expandStringSlice(removeEmpty(f))
	}
	if len(files) == 0 {
		dir := os.ExpandEnv(cfg.GetString("DataDir"))
		var err error
		files, err = chlorophyll.ListDataFiles(dir, cfg.GetString("Pattern"))
		if err != nil {
			return nil, nothing, err
		}
		if len(files) == 0 {
			return nil, nothing, fmt.Errorf("chlutil: no files in %s match %q", dir, cfg.GetString("Pattern"))
		}
	}

	dir, err := ioutil.TempDir("", "chlorophyll")
	if err != nil {
		return nil, nothing, fmt.Errorf("chlutil: failed creating temporary download directory: %v", err)
	}
	cleanup := func() { os.RemoveAll(dir) }
	for i, f := range files {
		// Each file gets its own directory, so that remote files with
		// the same name don't overwrite each other.
		stage := filepath.Join(dir, fmt.Sprintf("%03d", i))
		if files[i], err = maybeDownload(ctx, f, stage, cfg.Log); err != nil {
			cleanup()
			return nil, nothing, err
		}
	}
	return files, cleanup, nil
}

func removeEmpty(s []string) []string {
	var o []string
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			o = append(o, v)
		}
	}
	return o
}

// region returns the region selected by the Region options.
func (cfg *Cfg) region() (Region, error) {
	if name := strings.ToLower(cfg.GetString("Region.Name")); name != "" {
		regions, err := LoadRegions(os.ExpandEnv(cfg.GetString("Region.File")))
		if err != nil {
			return Region{}, err
		}
		r, ok := regions[name]
		if !ok {
			return Region{}, fmt.Errorf("chlutil: unknown region %q; valid regions are %v", name, regionNames(regions))
		}
		return r, nil
	}
	r := Region{
		Name: "custom",
		Lat:  chlorophyll.Range{Min: cfg.GetFloat64("Region.LatMin"), Max: cfg.GetFloat64("Region.LatMax")},
		Lon:  chlorophyll.Range{Min: cfg.GetFloat64("Region.LonMin"), Max: cfg.GetFloat64("Region.LonMax")},
	}
	if r.Lat.Min > r.Lat.Max || r.Lon.Min > r.Lon.Max {
		return Region{}, fmt.Errorf("chlutil: invalid region %v", r)
	}
	return r, nil
}
