package main

import (
	"os"

	"studio_pm/internal/app"
	"studio_pm/internal/cli"

	"github.com/rs/zerolog/log"
)

func main() {
	app.SetupEnvironment()

	a, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	if err := cli.Execute(a); err != nil {
		os.Exit(1)
	}
}
