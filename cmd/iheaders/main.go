package main

import (
	"os"

	"github.com/jarcode-foss/iheaders/cmd/iheaders/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
