// Command daemon runs the process-supervising HTTP API that starts,
// inspects, and stops crawl jobs.
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/rohmanhakim/newscrawl/internal/daemon"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("daemon: build logger: %v", err)
	}
	defer logger.Sync()

	recorder := telemetry.NewRecorder(256, telemetry.NewLogSink(logger))
	defer recorder.Close()

	srv := daemon.NewServer(recorder)
	if err := srv.Run(*addr); err != nil {
		logger.Fatal("daemon exited", zap.Error(err))
	}
}
