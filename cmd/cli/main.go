package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/otpvault/internal/buildinfo"
	"github.com/dmitrijs2005/otpvault/internal/client/cli"
	"github.com/dmitrijs2005/otpvault/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	done := make(chan struct{})
	go func() {
		// The REPL blocks on stdin, so an interrupt closes the app from here.
		<-ctx.Done()
		select {
		case <-done:
			return
		default:
		}
		app.Close()
		os.Exit(130)
	}()

	app.Run(ctx)
	close(done)
}
