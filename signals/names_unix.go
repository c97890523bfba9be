//go:build linux || darwin

package signals

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func signalNum(name string) syscall.Signal {
	if name == `SIGIOT` {
		return unix.SIGIOT
	}
	return unix.SignalNum(name)
}
