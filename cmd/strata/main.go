package main

import (
	"os"

	"strata/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
