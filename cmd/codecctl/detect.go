package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/RowanDark/codecs/internal/cipher"
)

func runDetect(args []string) int {
	fs := newFlagSet("detect")
	in := fs.String("in", "-", "input file, - for stdin")
	asJSON := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	input, err := readInput(*in)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	results, err := cipher.NewFrameDetector().Detect(context.Background(), input)
	if err != nil {
		fmt.Fprintf(stderr, "detect: %v\n", err)
		return 1
	}

	if *asJSON {
		if results == nil {
			results = []cipher.DetectionResult{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(stderr, "write output: %v\n", err)
			return 1
		}
		return 0
	}

	if len(results) == 0 {
		fmt.Fprintln(stdout, "no known encoding detected")
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENCODING\tCONFIDENCE\tOPERATION\tREASON")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", r.Encoding, r.Confidence, r.Operation, r.Reasoning)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
