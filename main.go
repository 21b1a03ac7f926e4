package main

import (
	"os"

	"github.com/Bitlatte/pressroom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
