package main

import (
	"log"

	"quizgen-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("✗ %v", err)
	}
}
