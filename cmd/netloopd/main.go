// Command netloopd runs the connection engine described in spec.md as a
// standalone process: parse and validate flags, open the listening
// socket, run the event loop until a signal or a SHUTDOWN command asks it
// to stop, then exit.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"netloop/internal/config"
	"netloop/internal/lifecycle"
	"netloop/internal/server"
	"netloop/internal/sockutil"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "netloopd:", err)
		return 2
	}

	level, err := cfg.ZerologLevel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "netloopd:", err)
		return 2
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	listenFd, err := sockutil.Listen(cfg.Port, cfg.Backlog, cfg.RecvBufferBytes, cfg.SendBufferBytes)
	if err != nil {
		log.Error().Err(err).Msg("failed to open listening socket")
		return 1
	}

	srv, err := server.New(server.Options{
		ListenFd:       listenFd,
		MaxConnections: cfg.MaxConnections,
		PollerBatch:    64,
		Logger:         log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start event loop")
		return 1
	}

	stopSignals := lifecycle.WatchSignals(srv.Wakeup())
	defer stopSignals()

	log.Info().
		Int("port", cfg.Port).
		Int("max_connections", cfg.MaxConnections).
		Int("backlog", cfg.Backlog).
		Msg("netloopd listening")

	if err := srv.Run(); err != nil {
		log.Error().Err(err).Msg("event loop exited with error")
		return 1
	}
	return 0
}
