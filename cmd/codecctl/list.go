package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/RowanDark/codecs/internal/cipher"
)

func runList(args []string) int {
	fs := newFlagSet("list")
	opType := fs.String("type", "", "only show operations of this type (encode, decode, scramble, unscramble)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ops := cipher.ListOperations()
	if *opType != "" {
		ops = cipher.ListOperationsByType(cipher.OperationType(*opType))
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tREVERSE\tDESCRIPTION")
	for _, op := range ops {
		reverse := "-"
		if rev, ok := op.Reverse(); ok {
			reverse = rev.Name()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), reverse, op.Description())
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
