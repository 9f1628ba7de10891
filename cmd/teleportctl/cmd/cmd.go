// Package cmd is teleportctl's cobra command tree: a small operator CLI
// exercising the Supervisor's request surface for local
// testing/demoing, grounded in facebook/time's calnex/cmd tree.
package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/supervisor"
)

// RootCmd is teleportctl's entry point.
var RootCmd = &cobra.Command{
	Use:   "teleportctl",
	Short: "operate a teleportd device",
}

var (
	configPath string
	listenAddr string
	tempDir    string
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "teleport.toml", "path to the device's config file")
	RootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "127.0.0.1:0", "UDP address to bind for outbound dials")
	RootCmd.PersistentFlags().StringVar(&tempDir, "tempdir", "", "directory inbound files land in before a final move")
}

// Execute is teleportctl's main entry point.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// newSupervisor opens the config store named by --config and builds its
// transport.Endpoint, without starting the accept loop or subsystem
// mailboxes — every verb below only needs the request-surface methods,
// none of which depend on Run being active.
func newSupervisor() (*supervisor.Supervisor, error) {
	dir := tempDir
	if dir == "" {
		dir = "."
	}
	return supervisor.New(supervisor.Config{
		ConfigPath: configPath,
		ListenAddr: listenAddr,
		TempDir:    dir,
		Log:        logging.New(logging.LevelError),
	})
}
