package main

import (
	"fmt"
	"os"

	"github.com/uniyakcom/herald/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "herald:", err)
		os.Exit(1)
	}
}
