package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/hoyle1974/chunkfile"
)

type app struct {
	store        *chunkfile.Store
	fingerprints []uint64
	out          io.Writer
	json         bool
}

type command struct {
	args  int
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"list":    {0, "list", (*app).list},
	"inspect": {1, "inspect <name>", (*app).inspect},
	"dump":    {2, "dump <name> <chunk>", (*app).dump},
	"import":  {2, "import <name> <file>", (*app).importFile},
	"diff":    {2, "diff <a> <b>", (*app).diff},
}

func (a *app) needFingerprints() error {
	if len(a.fingerprints) == 0 {
		return errors.New("at least one --fingerprint is required")
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	names, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

type chunkReport struct {
	Id      string `json:"id"`
	Raw     string `json:"raw"`
	Offset  uint64 `json:"offset"`
	Size    uint64 `json:"size"`
	Payload uint64 `json:"payload"`
}

type inspectReport struct {
	Name        string        `json:"name"`
	Fingerprint string        `json:"fingerprint"`
	Chunks      []chunkReport `json:"chunks"`
}

func (a *app) inspect(ctx context.Context, args []string) error {
	if err := a.needFingerprints(); err != nil {
		return err
	}
	r, err := a.store.Load(ctx, args[0], a.fingerprints)
	if err != nil {
		return err
	}
	defer r.Close()

	report := inspectReport{
		Name:        args[0],
		Fingerprint: fmt.Sprintf("0x%016X", r.Fingerprint()),
		Chunks:      []chunkReport{},
	}
	for _, e := range r.Chunks() {
		report.Chunks = append(report.Chunks, chunkReport{
			Id:      e.Id.String(),
			Raw:     fmt.Sprintf("0x%016X", uint64(e.Id)),
			Offset:  e.Offset,
			Size:    e.Size,
			Payload: e.PayloadSize(),
		})
	}

	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(a.out, "Container: %s\n", report.Name)
	fmt.Fprintf(a.out, "Fingerprint: %s\n", report.Fingerprint)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRAW\tOFFSET\tPAYLOAD")
	for _, c := range report.Chunks {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Id, c.Raw, c.Offset, c.Payload)
	}
	return tw.Flush()
}

func (a *app) dump(ctx context.Context, args []string) error {
	if err := a.needFingerprints(); err != nil {
		return err
	}
	id, err := parseId(args[1])
	if err != nil {
		return errors.Wrapf(err, "bad chunk id %q", args[1])
	}
	r, err := a.store.Load(ctx, args[0], a.fingerprints)
	if err != nil {
		return err
	}
	defer r.Close()

	payload, err := r.Payload(id)
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.out, hex.Dump(payload))
	return err
}

func (a *app) importFile(ctx context.Context, args []string) error {
	if err := a.needFingerprints(); err != nil {
		return err
	}
	f, err := os.Open(args[1])
	if err != nil {
		return errors.Wrapf(err, "can not open %s", args[1])
	}
	defer f.Close()

	if err := a.store.Import(ctx, args[0], f, a.fingerprints); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "imported %s as %s\n", args[1], args[0])
	return nil
}

func (a *app) diff(ctx context.Context, args []string) error {
	if err := a.needFingerprints(); err != nil {
		return err
	}
	diffs, err := a.store.Diff(ctx, args[0], args[1], a.fingerprints)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANGE\tID\tOLD\tNEW\tPATCH")
	for _, d := range diffs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", d.Change, d.Id, d.OldSize, d.NewSize, len(d.Patch))
	}
	return tw.Flush()
}
