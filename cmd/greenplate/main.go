package main

import (
	"os"

	"github.com/greenplate-labs/greenplate/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
