package main

import (
	"fmt"
	"os"

	"github.com/nodap/nodap-server/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nodap-server: %v\n", err)
		os.Exit(1)
	}
}
