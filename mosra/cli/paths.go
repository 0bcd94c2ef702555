package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppPaths is an interface to determine application specific paths for configuration
// and logging/tracing.
type AppPaths interface {
	ConfigDir() string
	LogDir() string
}

// DefaultAppPaths returns an AppPaths instance with platform-dependent defaults
// set, given appTag. appTag is a string specific to a client's application to identify it.
func DefaultAppPaths(appTag string) (AppPaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return appPaths{tag: appTag, home: home}, err
}

type appPaths struct {
	tag  string
	home string
}

var _ AppPaths = appPaths{}

func (a appPaths) dirName() string {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return a.tag
	}
	return strings.ToLower(a.tag)
}

func (a appPaths) ConfigDir() string {
	c, err := os.UserConfigDir()
	if err != nil {
		c = filepath.Join(a.home, ".config")
	}
	return filepath.Join(c, a.dirName())
}

func (a appPaths) LogDir() string {
	c, err := os.UserCacheDir()
	if err != nil {
		c = a.home
	}
	logs := "logs"
	if runtime.GOOS == "darwin" {
		logs = "Logs"
	}
	return filepath.Join(c, logs, a.dirName())
}

// resolve locates a settings or table file. Names not found relative to the
// working directory are looked up in the configuration directory.
func resolve(paths AppPaths, name string) string {
	if name == "" || filepath.IsAbs(name) || paths == nil {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	alt := filepath.Join(paths.ConfigDir(), name)
	if _, err := os.Stat(alt); err == nil {
		tracer().Debugf("using %s from configuration directory", alt)
		return alt
	}
	return name
}
