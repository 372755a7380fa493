package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/chunkfile"
	"github.com/hoyle1974/chunkfile/storage"
	"github.com/hoyle1974/chunkfile/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() string {
	var lines []string
	for _, c := range commands {
		lines = append(lines, "  "+c.usage)
	}
	sort.Strings(lines)
	return "usage: chunkfile [flags] <command>\n\ncommands:\n" + strings.Join(lines, "\n")
}

// run parses args and executes one command. A nil sys opens the storage the
// flags describe.
func run(ctx context.Context, args []string, out io.Writer, sys storage.System) error {
	f := newFlags()
	f.set.SetOutput(io.Discard)
	if err := f.set.Parse(args); err != nil {
		return errors.Wrapf(err, "%s", usage())
	}

	rest := f.set.Args()
	if len(rest) == 0 {
		return errors.New(usage())
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return errors.Newf("unknown command %q\n%s", rest[0], usage())
	}
	if len(rest)-1 != cmd.args {
		return errors.Newf("usage: chunkfile %s", cmd.usage)
	}

	cfg, err := f.resolve()
	if err != nil {
		return err
	}
	fingerprints, err := parseFingerprints(cfg.Fingerprints)
	if err != nil {
		return err
	}

	log, err := telemetry.NewDevelopmentLogger(cfg.Verbose)
	if err != nil {
		return errors.Wrap(err, "can not build logger")
	}
	log.Debug(fmt.Sprintf("source %s, uri %s", cfg.Source, cfg.URI))

	if sys == nil {
		if sys, err = openStorage(ctx, cfg); err != nil {
			return err
		}
	}

	a := &app{
		store:        chunkfile.NewStore(sys, chunkfile.StoreConfig{CacheTTL: -1, Logger: log}),
		fingerprints: fingerprints,
		out:          out,
		json:         *f.json,
	}
	return cmd.run(a, ctx, rest[1:])
}
