package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"pulse/internal/config"
	"pulse/internal/repository"
)

var (
	historyLimit     int
	historyResponses bool

	historyFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Value:       20,
			Usage:       "number of rows to print",
			Destination: &historyLimit,
		},
		cli.BoolFlag{
			Name:        "responses, r",
			Usage:       "print check-in responses instead of sessions",
			Destination: &historyResponses,
		},
	}
)

func history(_ *cli.Context) error {
	cfg := config.Load()
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if historyResponses {
		responses, err := repository.NewResponseRepository(database).ListRecentResponses(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(responses) == 0 {
			fmt.Println("pulse: no responses recorded")
			return nil
		}
		fmt.Fprintln(w, "TIME\tKIND\tEXCITEMENT\tACTIVITY")
		for _, r := range responses {
			activity := "-"
			if r.Activity != nil {
				activity = *r.Activity
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.CreatedAt.Local().Format(time.DateTime), r.Kind, r.Excitement, activity)
		}
		return nil
	}

	sessions, err := repository.NewPomodoroRepository(database).ListRecentSessions(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("pulse: no sessions recorded")
		return nil
	}
	fmt.Fprintln(w, "STARTED\tCYCLE\tSTATUS\tMINUTES\tTASK")
	for _, s := range sessions {
		status := "running"
		minutes := "-"
		if s.EndedAt != nil {
			status = "abandoned"
			if s.Completed {
				status = "completed"
			}
			minutes = fmt.Sprintf("%.0f", s.EndedAt.Sub(s.StartedAt).Minutes())
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", s.StartedAt.Local().Format(time.DateTime), s.Cycle, status, minutes, s.Task)
	}
	return nil
}
