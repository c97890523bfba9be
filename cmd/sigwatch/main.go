// Command sigwatch logs the named signals as they are received, until
// SIGTERM, a second SIGINT, or the timeout.
//
// The first SIGINT is handled by a once listener, after which the handler
// is uninstalled and the default action applies.
//
// Usage:
//
//	sigwatch [-level info] [-timeout 0] SIGNAL...
//
// Logs are written to stderr as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/go-eventtarget/signals"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet(`sigwatch`, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: sigwatch [flags] SIGNAL...\n\nsignals: %v\n\nflags:\n", signals.Names())
		flags.PrintDefaults()
	}
	levelName := flags.String(`level`, logiface.LevelInformational.String(), `log level`)
	timeout := flags.Duration(`timeout`, 0, `exit after this long, 0 to wait for a signal`)
	if err := flags.Parse(args); err != nil {
		return 2
	}

	level, ok := parseLevel(*levelName)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "sigwatch: invalid level %q\n", *levelName)
		return 2
	}
	names := flags.Args()
	if len(names) == 0 {
		flags.Usage()
		return 2
	}
	for _, name := range names {
		if !signals.Catchable(name) {
			_, _ = fmt.Fprintf(stderr, "sigwatch: cannot watch %q\n", name)
			return 2
		}
	}

	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	if err := watch(ctx, logger, names, *timeout); err != nil {
		logger.Err().
			Err(err).
			Log(`event loop failed`)
		return 1
	}
	return 0
}

func parseLevel(s string) (logiface.Level, bool) {
	for level := logiface.LevelEmergency; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, true
		}
	}
	return logiface.LevelDisabled, false
}
