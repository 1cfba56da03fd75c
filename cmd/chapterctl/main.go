package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chapteradmin/pkg/cli"
	"github.com/platinummonkey/chapteradmin/pkg/client"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	env := &cli.Env{
		Out:    os.Stdout,
		Logger: logger,
		Remote: client.Config{
			BaseURL:      os.Getenv("CHAPTERS_SERVER_URL"),
			Token:        os.Getenv("CHAPTERS_TOKEN"),
			ClientID:     os.Getenv("CHAPTERS_CLIENT_ID"),
			ClientSecret: os.Getenv("CHAPTERS_CLIENT_SECRET"),
			TokenURL:     os.Getenv("CHAPTERS_TOKEN_URL"),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(env).Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
