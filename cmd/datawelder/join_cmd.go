package main

import (
	"context"
	"flag"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/datawelder/frame"
	"github.com/grailbio/datawelder/join"
	"github.com/grailbio/datawelder/record"
)

func runJoin(args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	format := fs.String("format", "binary", "output format: csv, json, or binary")
	fmtparams := fs.String("fmtparams", "", "comma-separated key=value writer params")
	selectExpr := fs.String("select", "", "SELECT expression; empty selects every field")
	subs := fs.Int("subs", 0, "worker count (0 = NumCPU, 1 = sequential)")
	logLevel := fs.Int("loglevel", 0, "vlog verbosity level (0 = quiet, higher is more verbose)")
	// Flags may appear before, between or after the positional args.
	var rest []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			break
		}
		rest = append(rest, fs.Arg(0))
		args = fs.Args()[1:]
	}
	if err := configureLogging(*logLevel); err != nil {
		return errors.Wrap(err, "join: configure logging")
	}
	if len(rest) < 3 {
		return errors.New("join: usage: datawelder join DEST SOURCE1 SOURCE2 [SOURCE3 ...]")
	}
	dest, sources := rest[0], rest[1:]

	fp, err := record.ParseFmtParams(splitNonEmpty(*fmtparams, ","))
	if err != nil {
		return err
	}

	frames := make([]*frame.Frame, len(sources))
	for i, src := range sources {
		f, err := frame.Open(src)
		if err != nil {
			return errors.Wrapf(err, "join: open frame %q", src)
		}
		frames[i] = f
	}

	vlog.Infof("joining %d frames into %s", len(frames), dest)
	ctx := context.Background()
	return join.Run(ctx, dest, join.Options{
		Frames:     frames,
		Format:     record.Format(*format),
		FmtParams:  fp,
		SelectExpr: *selectExpr,
		Workers:    *subs,
	})
}
