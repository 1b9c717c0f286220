// Command postdeck edits a draft post offline: it keeps the draft session on
// disk across runs, renders image variants and syncs the draft to storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/debemdeboas/postdeck/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(config.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading %s file: %v\n", config.EnvFile, err)
	}

	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
