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
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/chlorophyll"
)

// List writes the data files in dir matching pattern to w, one per line.
func List(w io.Writer, dir, pattern string) error {
	files, err := chlorophyll.ListDataFiles(dir, pattern)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(w, f)
	}
	return nil
}

// load opens files, concatenating them along time if there is more than one.
func load(files []string, log logrus.FieldLogger) (*chlorophyll.Dataset, error) {
	log.WithField("files", files).Info("loading")
	if len(files) == 1 {
		return chlorophyll.LoadChlorophyllData(files[0])
	}
	return chlorophyll.LoadMultipleFiles(files)
}

// Info writes a summary of the data in files to w.
func Info(w io.Writer, files []string, log logrus.FieldLogger) error {
	ds, err := load(files, log)
	if err != nil {
		return err
	}
	defer ds.Close()
	return summarize(w, ds, log)
}

// Subset writes a summary of the part of the data in files within
// region r to w.
func Subset(w io.Writer, files []string, r Region, log logrus.FieldLogger) error {
	ds, err := load(files, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	sub, err := chlorophyll.Subset(ds, r.Lat, r.Lon)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"region": r.Name,
		"lat":    r.Lat.String(),
		"lon":    r.Lon.String(),
		"dims":   sub.Dims,
	}).Info("subset")
	fmt.Fprintf(w, "region: %v\n", r)
	return summarize(w, sub, log)
}

// summarize writes the structure, extent and time span of ds to w.
func summarize(w io.Writer, ds *chlorophyll.Dataset, log logrus.FieldLogger) error {
	fmt.Fprint(w, ds.String())
	if b, err := ds.Bounds(); err == nil {
		fmt.Fprintf(w, "extent: lat [%g, %g], lon [%g, %g]\n", b.Min.Y, b.Max.Y, b.Min.X, b.Max.X)
	} else {
		log.WithError(err).Debug("no extent")
	}
	if !ds.HasCoord(chlorophyll.TimeDim) {
		return nil
	}
	times, err := ds.Times()
	if err != nil {
		log.WithError(err).Warn("could not decode times")
		return nil
	}
	if len(times) > 0 {
		fmt.Fprintf(w, "time: %s to %s (%d steps)\n",
			times[0].Format(time.RFC3339), times[len(times)-1].Format(time.RFC3339), len(times))
	}
	return nil
}
