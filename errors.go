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
	"fmt"
	"strings"
)

var (
	// ErrNoFiles is returned by LoadMultipleFiles when it is given no paths.
	ErrNoFiles = errors.New("chlorophyll: no files to load")

	// ErrNoDatasets is returned by Concat when it is given no datasets.
	ErrNoDatasets = errors.New("chlorophyll: no datasets to concatenate")

	// ErrSchemaMismatch matches every *SchemaMismatchError under errors.Is.
	ErrSchemaMismatch = errors.New("chlorophyll: schema mismatch")
)

// SchemaMismatchError reports a dataset that lacks an expected coordinate
// or dimension, or datasets that can't be concatenated.
type SchemaMismatchError struct {
	// Op is the operation that failed, e.g. "subset" or "concat".
	Op string

	// Dim is the dimension being operated on, if any.
	Dim string

	// Names are the dimension, coordinate or variable names involved.
	Names []string

	Reason string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("chlorophyll: %s: %s", e.Op, e.Reason)
	if e.Dim != "" {
		msg += fmt.Sprintf(" (dimension %s)", e.Dim)
	}
	if len(e.Names) > 0 {
		msg += ": " + strings.Join(e.Names, ", ")
	}
	return msg
}

// Is makes errors.Is(err, ErrSchemaMismatch) true.
func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }
