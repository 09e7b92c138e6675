package main

import (
	"os"

	"github.com/vbsocial/vbsocial/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
