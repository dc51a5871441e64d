// datawelder partitions and joins large tabular data frames on disk.
//
// Usage:
//
//	datawelder partition SOURCE DEST N [flags]
//	datawelder join DEST SOURCE1 SOURCE2 [SOURCE3 ...] [flags]
//	datawelder inspect FRAME [flags]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage:

  datawelder partition SOURCE DEST N [--fieldnames F1,F2,...] [--keyindex I | --keyname NAME]
                        [--format csv|json] [--fmtparams K=V[,K=V...]] [--loglevel N]

      Hash-partitions SOURCE into N sorted shards under DEST.

  datawelder join DEST SOURCE1 SOURCE2 [SOURCE3 ...] [--format csv|json|binary]
                   [--fmtparams K=V[,K=V...]] [--select EXPR] [--subs W] [--loglevel N]

      Left-outer merge-joins the partitioned frames at SOURCE1, SOURCE2, ...
      on their shared shard key and writes the result to DEST.

  datawelder inspect FRAME [--shard I]

      Prints a partitioned frame's manifest and, if --shard is given,
      the records of that one shard.

`)
	}

	shutdown := grail.Init()
	defer shutdown()

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	verb := os.Args[1]
	args := os.Args[2:]

	var err error
	switch verb {
	case "partition":
		err = runPartition(args)
	case "join":
		err = runJoin(args)
	case "inspect":
		err = runInspect(args)
	case "-h", "-help", "--help":
		flag.Usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "datawelder: unknown verb %q\n\n", verb)
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Printf("datawelder %s: %v", verb, err)
		os.Exit(1)
	}
}
