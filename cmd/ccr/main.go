package main

import (
	"os"

	"github.com/dshills/ccr/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
