package main

import (
	"os"

	"github.com/joho/godotenv"

	stratacmder "github.com/papercomputeco/strata/cmd/strata"
)

func main() {
	// Best effort: provider keys and STRATA_ overrides may live in a
	// local .env file.
	_ = godotenv.Load()

	cmd := stratacmder.NewStrataCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
