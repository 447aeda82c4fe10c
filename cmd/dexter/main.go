package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/dexter/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	opts := cli.Options{Verbose: isVerbose()}

	root, container, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer container.Close()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func isVerbose() bool {
	if hasFlag("--verbose") || hasFlag("-v") {
		return true
	}
	return strings.EqualFold(os.Getenv("DEXTER_DEBUG"), "1") || strings.EqualFold(os.Getenv("DEXTER_DEBUG"), "true")
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == "--" {
			return false
		}
		if arg == name {
			return true
		}
	}
	return false
}
