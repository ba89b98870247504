package main

import (
	"fmt"
	"os"

	"github.com/tphakala/via2coco/cmd"
	"github.com/tphakala/via2coco/internal/buildinfo"
	"github.com/tphakala/via2coco/internal/conf"
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	// --config is applied after flag parsing, this load only seeds defaults
	settings, err := conf.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	ctx := conf.NewContext(settings, buildinfo.Current())

	rootCmd, closeFn := cmd.RootCommand(ctx)
	defer closeFn()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}
