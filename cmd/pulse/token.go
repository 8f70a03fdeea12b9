package main

import (
	"fmt"

	"github.com/urfave/cli"

	"pulse/internal/config"
	"pulse/internal/service"
)

var (
	tokenSubject string

	tokenFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "subject, s",
			Value:       "desktop-ui",
			Usage:       "name of the client the token is issued to",
			Destination: &tokenSubject,
		},
	}
)

func token(_ *cli.Context) error {
	cfg := config.Load()
	signed, apiErr := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL).Issue(tokenSubject)
	if apiErr != nil {
		return apiErr
	}
	fmt.Println(signed)
	return nil
}
