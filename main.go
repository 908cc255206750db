package main

import (
	"github.com/arashi-dev/arashi/cli"
)

func main() {
	cli.Run()
}
