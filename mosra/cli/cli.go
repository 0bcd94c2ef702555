// Package cli implements the mosra command line interface.
//
// License
//
// Governed by a 3-Clause BSD license. License file may be found in the root
// folder of this module.
//
// Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/mosra/problem"
	"github.com/npillmayer/mosra/settings"
	"github.com/npillmayer/mosra/table"
	"github.com/spf13/cobra"
)

// configPaths is set up by loadConfig.
var configPaths AppPaths

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mosra",
	Short: "Compile land-use allocation problems for LP and NL solvers",
	Long: `Welcome to MOSRA

MOSRA reads problem settings and an attribute table of spatial units and
compiles them into input for optimisation solvers: an LP file for linear
solvers or an AMPL .nl file for non-linear ones.

Settings are read from HCL (.hcl) or JSON documents with one block per
section (problem, criteria, objectives, equations, ...). The attribute
table is read from an SQLite database.

`,
	SilenceUsage: true,
}

var lpCmd = &cobra.Command{
	Use:   "lp",
	Short: "Write the problem as an LP file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, writeLp)
	},
}

var nlCmd = &cobra.Command{
	Use:   "nl",
	Short: "Write the problem as an AMPL .nl file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, writeNL)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the decision variables and constraints of the problem",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, writeInfo)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called exactly once by main().
func Execute(ctx context.Context) {
	rootCmd.AddCommand(lpCmd, nlCmd, infoCmd)
	if rootCmd.ExecuteContext(ctx) != nil {
		mosra.Exit(2)
	}
	mosra.Close()
}

func init() {
	cobra.OnInitialize(loadConfig)
	// persistent flags which will be global for the application
	flags := rootCmd.PersistentFlags()
	flags.StringP("settings", "s", "", "Problem settings (.hcl or .json)")
	flags.StringP("database", "d", "", "SQLite database holding the attribute table")
	flags.StringP("table", "t", "", "Name of the attribute table")
	flags.StringP("output", "o", "", "Output file (default stdout)")
	flags.String("logfile", "stderr", "URL of log output location")
	flags.BoolP("verbose", "v", false, "Trace progress of the build")
	flags.String("nl.tempdir", os.TempDir(), "Directory for temporary .nl sections")
	flags.String("problem.holefield", "nm_hole", "Column flagging spatial units to skip")
	rootCmd.MarkPersistentFlagRequired("settings")
	rootCmd.MarkPersistentFlagRequired("database")
	rootCmd.MarkPersistentFlagRequired("table")
}

// writer writes a built problem to out.
type writer func(b *problem.Builder, out io.Writer) error

func runBuild(cmd *cobra.Command, write writer) error {
	flags := cmd.Flags()
	sname, _ := flags.GetString("settings")
	dbname, _ := flags.GetString("database")
	tname, _ := flags.GetString("table")
	oname, _ := flags.GetString("output")
	s, err := loadSettings(resolve(configPaths, sname))
	if err != nil {
		return err
	}
	tbl, err := table.OpenSQLite(resolve(configPaths, dbname), tname)
	if err != nil {
		return err
	}
	defer tbl.Close()
	if err = cmd.Context().Err(); err != nil {
		return err
	}
	b := &problem.Builder{Settings: s, Table: tbl}
	if oname == "" {
		return write(b, cmd.OutOrStdout())
	}
	out, err := os.Create(oname)
	if err != nil {
		return mosra.IOError(err, "cannot create %s", oname)
	}
	if err = write(b, out); err != nil {
		out.Close()
		os.Remove(oname)
		return err
	}
	if err = out.Close(); err != nil {
		return mosra.IOError(err, "cannot write %s", oname)
	}
	tracer().Infof("problem written to %s", oname)
	return nil
}

// loadSettings reads problem settings. HCL documents are decoded
// section-wise, anything else is read as JSON with one object per section.
func loadSettings(path string) (*settings.Settings, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, mosra.IOError(err, "cannot read settings")
		}
		return settings.ParseHCL(src, path)
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, mosra.SettingsError("cannot load settings %s: %v", path, err)
	}
	return settings.FromKoanf(k)
}

func writeLp(b *problem.Builder, out io.Writer) error {
	m, err := b.MakeLp()
	if err != nil {
		return err
	}
	return m.WriteLP(out)
}

func writeNL(b *problem.Builder, out io.Writer) error {
	_, err := b.MakeNL(out)
	return err
}

func writeInfo(b *problem.Builder, out io.Writer) error {
	m, err := b.MakeLp()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "problem with %d columns and %d rows\n", m.NumColumns(), len(m.Rows()))
	return renderMatrix(m, out)
}
