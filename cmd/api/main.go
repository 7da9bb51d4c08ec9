package main

import (
	"fmt"
	"os"

	"github.com/anziyang2000/hq-code-sub003/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}
