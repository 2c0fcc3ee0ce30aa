package main

import (
	"os"

	"github.com/factflow-systems/factflow/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
