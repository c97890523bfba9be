//go:build !linux && !darwin

package signals

import (
	"syscall"
)

func signalNum(name string) syscall.Signal {
	switch name {
	case `SIGINT`:
		return syscall.SIGINT
	case `SIGQUIT`:
		return syscall.SIGQUIT
	case `SIGKILL`:
		return syscall.SIGKILL
	case `SIGTERM`:
		return syscall.SIGTERM
	default:
		return 0
	}
}
