// Command codecctl runs codec operations, pipelines and recipes from the
// command line, locally or against a codecd server.
package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
)

const cliBanner = "codecctl - byte codecs and scramblers"

var version = "dev"

// Overridden in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func usage() {
	fmt.Fprintln(stderr, cliBanner)
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "usage: codecctl <command> [flags]")
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "commands:")
	fmt.Fprintln(stderr, "  list                      list registered operations")
	fmt.Fprintln(stderr, "  run --op NAME [...]       run operations over stdin or --in")
	fmt.Fprintln(stderr, "  recipe save|list|show|search|delete|run")
	fmt.Fprintln(stderr, "  detect                    guess how the input was encoded")
	fmt.Fprintln(stderr, "  config print              show the resolved configuration")
	fmt.Fprintln(stderr, "  version                   print the version")
}

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	if len(args) == 0 {
		// No subcommand/flags provided: show usage and exit non-zero.
		usage()
		return 2
	}

	switch args[0] {
	case "list":
		return runList(args[1:])
	case "run":
		return runRun(args[1:])
	case "recipe":
		return runRecipe(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "config":
		return runConfig(args[1:])
	case "version", "--version":
		fmt.Fprintf(stdout, "codecctl %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		usage()
		return 2
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
