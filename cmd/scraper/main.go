package main

import (
	"log/slog"
	"os"

	"github.com/AINomadD3v/model-scraper/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
