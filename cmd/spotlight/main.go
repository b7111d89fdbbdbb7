package main

import (
	"os"

	"github.com/framecast/spotlight/cmd/spotlight/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
