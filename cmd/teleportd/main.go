package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/supervisor"
)

func main() {
	var (
		configPath = flag.String("config", "teleport.toml", "path to the device's config file")
		listenAddr = flag.String("listen", "0.0.0.0:0", "UDP address to listen on")
		tempDir    = flag.String("tempdir", os.TempDir(), "directory inbound files land in before a final move")
		logLevel   = flag.String("loglevel", "info", "log level: debug, info, error")
	)
	flag.Parse()

	log := logging.New(logging.ParseLevel(*logLevel))

	sup, err := supervisor.New(supervisor.Config{
		ConfigPath: *configPath,
		ListenAddr: *listenAddr,
		TempDir:    *tempDir,
		Log:        log,
	})
	if err != nil {
		log.Errorf("teleportd: %v", err)
		os.Exit(1)
	}

	log.Infof("teleportd: listening on %s, id %s", sup.GetLocalAddr(), sup.LocalID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		log.Errorf("teleportd: %v", err)
		os.Exit(1)
	}
}
