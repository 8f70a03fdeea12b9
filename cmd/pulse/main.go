package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"pulse/internal/telemetry"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pulse:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "pulse",
		HelpName:  "pulse",
		Usage:     "check-in prompts and a pomodoro timer that survive sleep and restarts",
		Version:   telemetry.Version,
		UsageText: "pulse <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "serve",
				Usage:  "run the daemon and its local control API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations",
				Action: migrate,
			},
			{
				Name:   "token",
				Usage:  "print a bearer token for the control API",
				Action: token,
				Flags:  tokenFlags,
			},
			{
				Name:   "history",
				Usage:  "print recent pomodoro sessions and check-in responses",
				Action: history,
				Flags:  historyFlags,
			},
		},
	}
}
