package main

import (
	"github.com/t3m8ch/checkrunner/internal/cli"
)

func main() {
	cli.Execute()
}
