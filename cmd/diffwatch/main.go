package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/diffwatch/internal/app"
)

func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "diffwatch: %v\n", err)
		os.Exit(1)
	}
}
