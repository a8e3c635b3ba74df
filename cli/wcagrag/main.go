package main

import (
	"os"

	"github.com/joho/godotenv"

	wcagragcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag"
)

func main() {
	// Provider keys may live in a local .env file.
	_ = godotenv.Load()

	cmd := wcagragcmder.NewWcagragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
