package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/codecs/internal/config"
)

const redactedToken = "[REDACTED_SECRET]"

func runConfig(args []string) int {
	if len(args) == 0 || args[0] != "print" {
		fmt.Fprintln(stderr, "usage: codecctl config print [--reveal]")
		return 2
	}
	fs := newFlagSet("config print")
	reveal := fs.Bool("reveal", false, "print the auth token instead of masking it")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if cfg.AuthToken != "" && !*reveal {
		cfg.AuthToken = redactedToken
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
