package main

import (
	"os"

	"github.com/kestrel-xyz/timed/cmd/timed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
