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

// Package chlutil holds the command-line interface and configuration
// for the chlorophyll package.
package chlutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/chlorophyll"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
type Cfg struct {
	*viper.Viper

	// Root is the main command.
	Root *cobra.Command

	versionCmd, listCmd, infoCmd, subsetCmd *cobra.Command

	// Log receives progress messages. Its level is set by the
	// LogLevel option.
	Log *logrus.Logger

	options []option
}

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// InitializeConfig creates a new configuration holder and command tree.
func InitializeConfig() *Cfg {
	cfg := &Cfg{
		Viper: viper.New(),
		Log:   logrus.New(),
	}
	cfg.Log.Out = os.Stderr
	cfg.Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}

	cfg.Root = &cobra.Command{
		Use:   "chlorophyll",
		Short: "Load and subset gridded chlorophyll data.",
		Long: `chlorophyll lists, loads, and subsets gridded chlorophyll data
stored in classic-format NetCDF files.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CHLOROPHYLL_var' where 'var'
is the name of the variable to be set, with '.' replaced by '_'. Paths are
allowed to contain environment variables.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return cfg.setConfig() },
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of chlorophyll.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chlorophyll v%s\n", chlorophyll.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the data files.",
		Long: `list prints the files in DataDir that match Pattern, one per line,
in sorted order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return List(cmd.OutOrStdout(), os.ExpandEnv(cfg.GetString("DataDir")), cfg.GetString("Pattern"))
		},
		DisableAutoGenTag: true,
	}

	cfg.infoCmd = &cobra.Command{
		Use:   "info [files...]",
		Short: "Summarize data files.",
		Long: `info loads the given files, or the files in the Files option, or
the files listed from DataDir, concatenating them along time, and prints
their dimensions, variables, extent, and time span. Files may be local paths,
http(s) URLs, or gs://, s3://, or file:// blob locations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, cleanup, err := cfg.inputFiles(context.Background(), args)
			if err != nil {
				return err
			}
			defer cleanup()
			return Info(cmd.OutOrStdout(), files, cfg.Log)
		},
		DisableAutoGenTag: true,
	}

	cfg.subsetCmd = &cobra.Command{
		Use:   "subset [files...]",
		Short: "Subset data files to a region.",
		Long: `subset loads files in the same way as info and prints a summary of the
part of the data within a latitude/longitude region. The region is the one
named by Region.Name, either built in ("california") or defined in
Region.File, or else the box given by Region.LatMin, Region.LatMax,
Region.LonMin and Region.LonMax.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := cfg.region()
			if err != nil {
				return err
			}
			files, cleanup, err := cfg.inputFiles(context.Background(), args)
			if err != nil {
				return err
			}
			defer cleanup()
			return Subset(cmd.OutOrStdout(), files, region, cfg.Log)
		},
		DisableAutoGenTag: true,
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.listCmd, cfg.infoCmd, cfg.subsetCmd)

	loadFlags := []*pflag.FlagSet{cfg.listCmd.Flags(), cfg.infoCmd.Flags(), cfg.subsetCmd.Flags()}
	regionFlags := []*pflag.FlagSet{cfg.subsetCmd.Flags()}

	cfg.options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum level of log messages:
              one of debug, info, warning, error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "DataDir",
			usage: `
              DataDir is the directory to search for data files. It can
              include environment variables.`,
			shorthand:  "d",
			defaultVal: ".",
			flagsets:   loadFlags,
		},
		{
			name: "Pattern",
			usage: `
              Pattern is the glob pattern data files in DataDir must match.`,
			shorthand:  "p",
			defaultVal: chlorophyll.DefaultPattern,
			flagsets:   loadFlags,
		},
		{
			name: "Files",
			usage: `
              Files lists the data files to load, in time order. If
              empty, the files in DataDir matching Pattern are used.
              The paths can include environment variables.`,
			defaultVal: []string{},
			flagsets:   loadFlags[1:],
		},
		{
			name: "Region.Name",
			usage: `
              Region.Name is the name of a predefined region to subset to.
              If empty, the box given by Region.LatMin, Region.LatMax,
              Region.LonMin and Region.LonMax is used.`,
			shorthand:  "r",
			defaultVal: "",
			flagsets:   regionFlags,
		},
		{
			name: "Region.File",
			usage: `
              Region.File is a TOML file defining additional regions,
              one table per region with lat = [min, max] and
              lon = [min, max] in degrees. It can include environment
              variables.`,
			defaultVal: "",
			flagsets:   regionFlags,
		},
		{
			name: "Region.LatMin",
			usage: `
              Region.LatMin is the southern edge of the region in degrees.`,
			defaultVal: chlorophyll.CaliforniaLatitude.Min,
			flagsets:   regionFlags,
		},
		{
			name: "Region.LatMax",
			usage: `
              Region.LatMax is the northern edge of the region in degrees.`,
			defaultVal: chlorophyll.CaliforniaLatitude.Max,
			flagsets:   regionFlags,
		},
		{
			name: "Region.LonMin",
			usage: `
              Region.LonMin is the western edge of the region in degrees,
              in either the -180 to 180 or the 0 to 360 convention.`,
			defaultVal: chlorophyll.CaliforniaLongitude.Min,
			flagsets:   regionFlags,
		},
		{
			name: "Region.LonMax",
			usage: `
              Region.LonMax is the eastern edge of the region in degrees.`,
			defaultVal: chlorophyll.CaliforniaLongitude.Max,
			flagsets:   regionFlags,
		},
	}

	// Set the prefix for configuration environment variables.
	cfg.SetEnvPrefix("CHLOROPHYLL")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	for _, option := range cfg.options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func (cfg *Cfg) setConfig() error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("chlutil: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("chlutil: %v", err)
	}
	cfg.Log.Level = level
	return nil
}
