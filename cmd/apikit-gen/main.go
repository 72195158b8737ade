package main

import (
	"os"

	"github.com/kbukum/apikit/cmd/apikit-gen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
