//go:build !windows

package exodbc

import (
	"github.com/ebitengine/purego"
)

// fallbackDriverManagers lists other well-known ODBC driver manager
// libraries to try when the resolved libPath fails to load, covering
// installs where unixODBC isn't the one getLibraryPath guessed (e.g. an
// iODBC-only system, or a unixODBC package using an unversioned soname).
var fallbackDriverManagers = []string{
	"libodbc.so.2",
	"libodbc.so.1",
	"libodbc.so",
	"libiodbc.so.2",
	"libiodbc.so",
}

// loadODBCLibrary loads the ODBC library on Unix-like systems, falling
// back to other known driver manager sonames if libPath itself won't load.
func loadODBCLibrary(libPath string) (uintptr, error) {
	handle, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err == nil {
		return handle, nil
	}
	for _, candidate := range fallbackDriverManagers {
		if candidate == libPath {
			continue
		}
		if handle, ferr := purego.Dlopen(candidate, purego.RTLD_NOW|purego.RTLD_GLOBAL); ferr == nil {
			Log(LevelWarning, "ODBC library %q failed to load (%s); using %q instead", libPath, err, candidate)
			return handle, nil
		}
	}
	return 0, err
}
