package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/grailbio/datawelder/frame"
)

// runInspect prints a partitioned frame's manifest and, optionally,
// the records of one shard, which is useful for debugging a partition
// or join run without writing a one-off script.
func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	shard := fs.Int("shard", -1, "print the records of this shard (default: manifest only)")
	limit := fs.Int("limit", 20, "maximum number of records to print")
	// Flags may appear before or after the FRAME argument.
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
	if len(rest) != 1 {
		return errors.New("inspect: usage: datawelder inspect FRAME [--shard I]")
	}

	f, err := frame.Open(rest[0])
	if err != nil {
		return err
	}
	m := f.Manifest()
	fmt.Printf("config_format: %d\n", m.ConfigFormat)
	fmt.Printf("field_names: %v\n", m.FieldNames)
	fmt.Printf("key_index: %d (%s)\n", m.KeyIndex, m.FieldNames[m.KeyIndex])
	fmt.Printf("num_partitions: %d\n", m.NumPartitions)
	fmt.Printf("partition_format: %s\n", m.PartitionFormat)
	if m.SourcePath != "" {
		fmt.Printf("source_path: %s\n", m.SourcePath)
	}

	if *shard < 0 {
		return nil
	}
	if *shard >= m.NumPartitions {
		return errors.Errorf("inspect: shard %d out of range [0, %d)", *shard, m.NumPartitions)
	}

	sh, err := f.Shard(context.Background(), *shard, nil)
	if err != nil {
		return err
	}
	reader, closer, err := sh.Records()
	if err != nil {
		return err
	}
	defer closer.Close()

	fmt.Fprintf(os.Stdout, "\nshard %d:\n", *shard)
	for n := 0; *limit <= 0 || n < *limit; n++ {
		rec, err := reader.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		fmt.Println(rec)
	}
	return nil
}
