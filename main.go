package main

import (
	"os"

	"github.com/thiagokokada/giter-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
