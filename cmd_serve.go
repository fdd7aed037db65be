package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var listenAddr string

func init() {
	commandServe.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default :8080)")
	mainCommand.AddCommand(commandServe)
}

var commandServe = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	proc, closeDB, err := buildProcessor(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewServer(cfg, proc, log).Run(ctx)
}
