package main

import (
	"os"

	"github.com/msto63/mExec/cmd/mexec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
