package main

import (
	"os"

	"github.com/putioarr/putioarr/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
