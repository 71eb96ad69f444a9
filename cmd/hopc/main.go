package main

import (
	"os"

	"github.com/Rashteg/h-opc-rashteg/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
