package cmd

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/transfer"
)

func init() {
	RootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <peer-id> <addr> <path>",
	Short: "send a file to a known peer",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		peerID, err := identity.EndpointIdFromHex(args[0])
		if err != nil {
			log.Fatalf("invalid peer id: %v", err)
		}
		addr := args[1]
		path := args[2]

		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("open %s: %v", path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			log.Fatalf("stat %s: %v", path, err)
		}

		sup, err := newSupervisor()
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		sup.SendFile(ctx, peerID, addr, filepath.Base(path), uint64(info.Size()), f)

		for status := range sup.OutboundFileSubscription() {
			log.Infof("%s: %d/%d bytes", status.FileName, status.Offset, status.Size)
			switch status.Kind {
			case transfer.EventDone:
				log.Infof("%s: done", status.FileName)
				return
			case transfer.EventError:
				log.Errorf("%s: %s", status.FileName, status.Message)
				return
			}
		}
	},
}
