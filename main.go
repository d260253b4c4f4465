package main

import (
	"os"

	"library-lending/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
