package mosra

import (
	"io"
	"os"
	"sync"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra'.
func tracer() tracing.Trace {
	return tracing.Select("mosra")
}

// Configuration holds global configuration values. We use koanf.
//
// Keys used by this module:
//
//	nl.tempdir          directory for .nl section files
//	nl.prefix           file name prefix for .nl section files
//	problem.holefield   column flagging holes (rows to skip)
//	problem.sdudim      name of the spatial decision unit dimension
//	problem.arealvar    name of the areal decision variable
//	problem.binaryvar   name of the binary coverage variable
//
// Use Config() to get a configuration with defaults set.
var Configuration *koanf.Koanf

// Tracefile is the file we write our log output, if not nil.
var Tracefile io.WriteCloser

var configOnce sync.Once

// Defaults are the configuration values used if nobody sets them.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"nl.tempdir":        os.TempDir(),
		"nl.prefix":         "mosra",
		"problem.holefield": "nm_hole",
		"problem.sdudim":    "SDU",
		"problem.arealvar":  "X",
		"problem.binaryvar": "b",
	}
}

// Config returns the global configuration. If none has been set by the
// client, a configuration holding the defaults is created.
func Config() *koanf.Koanf {
	configOnce.Do(func() {
		if Configuration == nil {
			Configuration = koanf.New(".")
		}
		for key, value := range Defaults() {
			if !Configuration.Exists(key) {
				if err := Configuration.Load(confmap.Provider(map[string]interface{}{
					key: value,
				}, "."), nil); err != nil {
					tracer().Errorf("cannot set configuration default %s: %v", key, err)
				}
			}
		}
	})
	return Configuration
}

// Close releases global resources.
func Close() {
	if Tracefile != nil {
		Tracefile.Close()
	}
}

// Exit exits the application. It gracefully shuts down all resources.
func Exit(errcode int) {
	Close()
	os.Exit(errcode)
}
