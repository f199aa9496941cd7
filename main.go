package main

import (
	"os"

	"github.com/herbievine/42-job-listener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
