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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// DefaultPattern is the glob pattern used by ListDataFiles when none is given.
const DefaultPattern = "*.nc"

// ListDataFiles returns the files in dir matching the glob pattern,
// sorted in ascending order. An empty pattern means DefaultPattern.
// Hidden files, whose names start with ".", are only matched by a
// pattern that also starts with ".".
// A directory that doesn't exist yields an empty list; the only
// error returned is for a malformed pattern.
func ListDataFiles(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("chlorophyll: listing %s in %s: %w", pattern, dir, err)
	}
	hidden := strings.HasPrefix(filepath.Base(pattern), ".")
	files := make([]string, 0, len(matches))
	for _, f := range matches {
		if hidden || !strings.HasPrefix(filepath.Base(f), ".") {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadChlorophyllData opens the NetCDF file at path. Only the header is
// read; variable data are read when first requested, so the returned
// Dataset keeps the file open and the caller must Close it.
func LoadChlorophyllData(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chlorophyll: opening %s: %w", path, err)
	}
	ds, err := readCDF(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chlorophyll: reading NetCDF file %s: %w", path, err)
	}
	ds.closers = []io.Closer{f}
	return ds, nil
}

// LoadMultipleFiles opens each of paths and concatenates them along the
// time dimension, in the given order. The returned Dataset owns all
// of the files and closes them on Close. If any file fails to open or the
// files can't be concatenated, the files already opened are closed.
func LoadMultipleFiles(paths []string) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	datasets := make([]*Dataset, 0, len(paths))
	closeAll := func() {
		for _, ds := range datasets {
			ds.Close()
		}
	}
	for _, p := range paths {
		ds, err := LoadChlorophyllData(p)
		if err != nil {
			closeAll()
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	out, err := Concat(datasets, TimeDim)
	if err != nil {
		closeAll()
		return nil, err
	}
	for _, ds := range datasets {
		out.closers = append(out.closers, ds)
	}
	return out, nil
}

// readCDF reads the header of the NetCDF file f into a Dataset whose
// variables read their data from f.
func readCDF(f *os.File) (*Dataset, error) {
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, err
	}
	if errs := nc.Header.Check(); len(errs) > 0 {
		return nil, errs[0]
	}
	nrecs, err := numRecs(f, nc.Header)
	if err != nil {
		return nil, err
	}
	h := nc.Header

	names, lengths := h.Dimensions(""), h.Lengths("")
	dims := make([]Dimension, len(names))
	for i, name := range names {
		l := lengths[i]
		if l == 0 { // record dimension
			l = nrecs
		}
		dims[i] = Dimension{Name: name, Len: l}
	}

	ds := newDataset(dims, attributes(h, ""))
	for _, name := range h.Variables() {
		v := &Variable{
			Name:       name,
			Dims:       h.Dimensions(name),
			Shape:      append([]int(nil), h.Lengths(name)...),
			Attributes: attributes(h, name),
		}
		record := h.IsRecordVariable(name)
		if record {
			v.Shape[0] = nrecs
		}
		if _, ok := h.ZeroValue(name, 0).(string); ok {
			v.char = true
		} else {
			v.load = cdfLoader(nc, name, v.Shape, record, v.Attributes)
		}
		ds.addVariable(v)
	}
	return ds, nil
}

// numRecs returns the number of records in f. The numrecs field of the
// header is used when it is set; for files written in streaming mode
// the number is computed from the file size.
func numRecs(f *os.File, h *cdf.Header) (int, error) {
	var buf [4]byte
	if _, err := f.ReadAt(buf[:], 4); err != nil {
		return 0, err
	}
	if n := int32(binary.BigEndian.Uint32(buf[:])); n >= 0 {
		return int(n), nil
	}
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int(h.NumRecs(fi.Size())), nil
}

// attributes returns the attributes of variable v, or the global
// attributes if v == "".
func attributes(h *cdf.Header, v string) map[string]interface{} {
	o := make(map[string]interface{})
	for _, a := range h.Attributes(v) {
		o[a] = h.GetAttribute(v, a)
	}
	return o
}

// cdfLoader returns a function that reads variable name from nc.
// Record variables are read one record at a time.
func cdfLoader(nc *cdf.File, name string, shape []int, record bool, attrs map[string]interface{}) func() (*sparse.DenseArray, error) {
	return func() (*sparse.DenseArray, error) {
		data := sparse.ZerosDense(append([]int(nil), shape...)...)
		if len(data.Elements) == 0 {
			return data, nil
		}
		if !record {
			if err := readVar(nc.Reader(name, nil, nil), data.Elements); err != nil {
				return nil, fmt.Errorf("chlorophyll: reading variable %s: %w", name, err)
			}
		} else {
			n := len(data.Elements) / shape[0]
			for rec := 0; rec < shape[0]; rec++ {
				start, end := make([]int, len(shape)), make([]int, len(shape))
				start[0], end[0] = rec, rec+1
				if err := readVar(nc.Reader(name, start, end), data.Elements[rec*n:(rec+1)*n]); err != nil {
					return nil, fmt.Errorf("chlorophyll: reading record %d of variable %s: %w", rec, name, err)
				}
			}
		}
		maskAndScale(data.Elements, attrs)
		return data, nil
	}
}

// readVar reads len(dst) values from r into dst.
func readVar(r cdf.Reader, dst []float64) error {
	buf := r.Zero(len(dst))
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return err
	}
	switch b := buf.(type) {
	case []uint8: // NetCDF BYTE is signed
		for i, v := range b {
			dst[i] = float64(int8(v))
		}
	case []int16:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []float32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []float64:
		copy(dst, b)
	default:
		return fmt.Errorf("unsupported data type %T", buf)
	}
	return nil
}

// maskAndScale replaces fill values with NaN and applies scale_factor
// and add_offset, following the CF conventions.
func maskAndScale(vals []float64, attrs map[string]interface{}) {
	var missing []float64
	for _, a := range []string{"_FillValue", "missing_value"} {
		if m, ok := floatValues(attrs[a]); ok {
			missing = append(missing, m...)
		}
	}
	scale, hasScale := firstFloat(attrs["scale_factor"])
	offset, hasOffset := firstFloat(attrs["add_offset"])
	if len(missing) == 0 && !hasScale && !hasOffset {
		return
	}
	for i, v := range vals {
		for _, m := range missing {
			if v == m {
				v = math.NaN()
				break
			}
		}
		if hasScale {
			v *= scale
		}
		if hasOffset {
			v += offset
		}
		vals[i] = v
	}
}

// floatValues converts a numeric attribute value to float64.
func floatValues(a interface{}) ([]float64, bool) {
	var o []float64
	switch vals := a.(type) {
	case []uint8:
		for _, v := range vals {
			o = append(o, float64(int8(v)))
		}
	case []int16:
		for _, v := range vals {
			o = append(o, float64(v))
		}
	case []int32:
		for _, v := range vals {
			o = append(o, float64(v))
		}
	case []float32:
		for _, v := range vals {
			o = append(o, float64(v))
		}
	case []float64:
		o = append(o, vals...)
	default:
		return nil, false
	}
	return o, true
}

func firstFloat(a interface{}) (float64, bool) {
	vals, ok := floatValues(a)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}
