package main

import (
	"context"
	"flag"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/datawelder/blob"
	"github.com/grailbio/datawelder/partition"
	"github.com/grailbio/datawelder/record"
)

func runPartition(args []string) error {
	fs := flag.NewFlagSet("partition", flag.ExitOnError)
	fieldNames := fs.String("fieldnames", "", "comma-separated field names; if empty, sniffed from the source's header")
	keyIndex := fs.Int("keyindex", -1, "index of the join key within fieldnames")
	keyName := fs.String("keyname", "", "name of the join key field")
	format := fs.String("format", "auto", "source format: auto, csv, or json")
	fmtparams := fs.String("fmtparams", "", "comma-separated key=value reader params")
	workers := fs.Int("workers", 0, "shards to sort concurrently (0 = NumCPU)")
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
		return errors.Wrap(err, "partition: configure logging")
	}
	if len(rest) != 3 {
		return errors.New("partition: usage: datawelder partition SOURCE DEST N")
	}
	source, dest, numStr := rest[0], rest[1], rest[2]

	numShards, err := strconv.Atoi(numStr)
	if err != nil || numShards <= 0 {
		return errors.Errorf("partition: N must be a positive integer, got %q", numStr)
	}
	if *keyIndex >= 0 && *keyName != "" {
		return errors.New("partition: --keyindex and --keyname are mutually exclusive")
	}

	ctx := context.Background()

	srcFormat, err := resolveSourceFormat(*format, source)
	if err != nil {
		return err
	}
	fp, err := record.ParseFmtParams(splitNonEmpty(*fmtparams, ","))
	if err != nil {
		return err
	}

	rc, err := blob.Open(ctx, source)
	if err != nil {
		return errors.Wrap(err, "partition: open source")
	}
	defer rc.Close()

	var key any
	switch {
	case *keyIndex >= 0:
		key = *keyIndex
	case *keyName != "":
		key = *keyName
	default:
		key = 0
	}

	names := splitNonEmpty(*fieldNames, ",")
	reader, err := record.OpenReader(rc, srcFormat, key, names, fp)
	if err != nil {
		return errors.Wrap(err, "partition: open reader")
	}

	vlog.Infof("partitioning %s into %d shards at %s", source, numShards, dest)
	return partition.Partition(ctx, reader, dest, partition.Options{
		NumShards:  numShards,
		SourcePath: source,
		Workers:    *workers,
		Progress: func(n int64) {
			vlog.VI(1).Infof("partition %s: %d records processed", source, n)
		},
	})
}

func resolveSourceFormat(requested, source string) (record.Format, error) {
	if requested != "" && requested != "auto" {
		return record.Format(requested), nil
	}
	return record.SniffFormat(source)
}

func splitNonEmpty(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
