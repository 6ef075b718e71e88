package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"transcript-navigator/internal/devserver"
	"transcript-navigator/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	dbPath := flag.String("db", "transcript-jobs.db", "sqlite database path")
	delay := flag.Duration("delay", 2*time.Second, "simulated processing time per job")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logging.New(logging.Config{Level: *level, Format: "console"})

	store, err := devserver.OpenStore(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("open job store")
	}
	defer store.Close()

	srv := devserver.NewServer(store, *delay, log)
	log.Info().Str("addr", *addr).Msg("development transcription server listening")
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
