package main

import (
	"os"

	"github.com/urbanmd/urbanmd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
