package signals

import (
	"sync"
	"syscall"
)

// signalNames are the names recognized as signal event types, in order.
// Names not supported by the platform are omitted from the tables.
var signalNames = [...]string{
	`SIGHUP`,
	`SIGINT`,
	`SIGQUIT`,
	`SIGILL`,
	`SIGTRAP`,
	`SIGABRT`,
	`SIGIOT`,
	`SIGBUS`,
	`SIGFPE`,
	`SIGKILL`,
	`SIGUSR1`,
	`SIGSEGV`,
	`SIGUSR2`,
	`SIGPIPE`,
	`SIGALRM`,
	`SIGTERM`,
	`SIGCHLD`,
	`SIGCONT`,
	`SIGSTOP`,
	`SIGTSTP`,
	`SIGTTIN`,
	`SIGTTOU`,
	`SIGURG`,
	`SIGXCPU`,
	`SIGXFSZ`,
	`SIGVTALRM`,
	`SIGPROF`,
	`SIGWINCH`,
	`SIGIO`,
	`SIGINFO`,
	`SIGSYS`,
}

type signalTable struct {
	byName   map[string]syscall.Signal
	byNumber map[syscall.Signal]string
	names    []string
}

// lookup is built on first use, and never modified.
var lookup = sync.OnceValue(func() *signalTable {
	t := &signalTable{
		byName:   make(map[string]syscall.Signal, len(signalNames)),
		byNumber: make(map[syscall.Signal]string, len(signalNames)),
	}
	for _, name := range signalNames {
		sig := signalNum(name)
		if sig <= 0 {
			continue
		}
		t.byName[name] = sig
		t.names = append(t.names, name)
		// aliases resolve to the first name
		if _, ok := t.byNumber[sig]; !ok {
			t.byNumber[sig] = name
		}
	}
	return t
})

// Number returns the signal for name, e.g. "SIGINT".
func Number(name string) (syscall.Signal, bool) {
	sig, ok := lookup().byName[name]
	return sig, ok
}

// Name returns the name of sig. Aliases (e.g. SIGIOT) are never returned.
func Name(sig syscall.Signal) (string, bool) {
	name, ok := lookup().byNumber[sig]
	return name, ok
}

// IsSignal reports whether name is a signal supported by the platform.
func IsSignal(name string) bool {
	_, ok := lookup().byName[name]
	return ok
}

// Names returns the supported signal names.
func Names() []string {
	return append([]string(nil), lookup().names...)
}

// Catchable reports whether name is a signal a handler may be installed for,
// which excludes SIGKILL and SIGSTOP.
func Catchable(name string) bool {
	return IsSignal(name) && name != `SIGKILL` && name != `SIGSTOP`
}
