package main

import (
	"os"

	"github.com/sayhiben/laserdove/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
