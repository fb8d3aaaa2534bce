package main

import (
	"os"

	"github.com/lavoro-tech/reranker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
