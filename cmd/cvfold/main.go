package main

import (
	"fmt"
	"os"

	"github.com/danmuck/cvfold/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	root := newRootCmd(os.Stdout, os.Stderr, os.Getenv, os.Args)
	root.SetArgs(os.Args[1:])
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cvfold: %v\n", err)
		os.Exit(1)
	}
}
