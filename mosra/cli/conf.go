package cli

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/schukonf/koanfadapter"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
)

// loadConfig is a callback function used by cobra's initialization mechanism.
// Unfortunately we're not allowed a return value.
func loadConfig() {
	k := koanf.New(".") // '.' is hierarchy delimiter
	// We locate mosra configuration with an application-key of 'MOSRA' and
	// use NestedText-format (nt) for config-files
	konf := koanfadapter.New(k, "MOSRA", []string{"nt"})
	konf.InitDefaults()
	if err := mergeFlags(konf); err != nil {
		tracing.Errorf(err.Error())
		mosra.Exit(1)
	}
	if err := configureTracing(konf); err != nil {
		tracing.Errorf(err.Error())
		mosra.Exit(1)
	}
	mosra.Configuration = k // defaults are merged in by mosra.Config()
	configPaths = locatePaths()
}

func mergeFlags(konf *koanfadapter.KConf) error {
	flags := rootCmd.PersistentFlags()
	err := konf.Koanf().Load(posflag.Provider(flags, ".", konf.Koanf()), nil)
	if err != nil {
		return err
	}
	if logname := konf.GetString("logfile"); logname != "" && logname != "stderr" {
		if strings.Contains(logname, ":/") {
			konf.Set("tracing.destination", logname)
		} else {
			konf.Set("tracing.destination", "file://"+logname)
		}
	}
	return err
}

func configureTracing(konf *koanfadapter.KConf) error {
	if a := konf.GetString("tracing.adapter"); a != "" && a != "go" {
		tracing.Errorf("tracing adapter type '%s' currently not supported", a)
	}
	konf.Set("tracing.adapter", "go") // use Go builtin logging facilities
	if dest := konf.GetString("tracing.destination"); dest != "" {
		if paths := locatePaths(); !strings.Contains(dest, ":") && paths.LogDir() != "" {
			konf.Set("tracing.destination", "file://"+paths.LogDir()+"/"+dest)
		}
	}
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	if err := trace2go.ConfigureRoot(konf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		return err
	}
	tracing.SetTraceSelector(trace2go.Selector())
	if konf.Koanf().Bool("verbose") {
		for _, key := range []string{"mosra", "mosra.settings", "mosra.equation", "mosra.codegen", "mosra.problem", "mosra.cli"} {
			tracing.Select(key).SetTraceLevel(tracing.LevelInfo)
		}
	}
	return nil
}

func locatePaths() AppPaths {
	paths, err := DefaultAppPaths("MOSRA")
	if err != nil {
		tracing.Errorf("cannot configure paths: %v", err)
	}
	return paths
}
