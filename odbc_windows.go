//go:build windows

package exodbc

import (
	"syscall"
)

// loadODBCLibrary loads the ODBC library on Windows. Unlike the Unix build
// there's no alternate driver manager to fall back to: odbc32.dll ships
// with the OS, so a load failure here means the system install itself is
// missing or the override path is wrong.
func loadODBCLibrary(libPath string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(libPath)
	if err != nil {
		Log(LevelWarning, "ODBC library %q failed to load: %s", libPath, err)
		return 0, err
	}
	return uintptr(handle), nil
}
