package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(peersCmd)
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "list paired devices",
	Run: func(cmd *cobra.Command, args []string) {
		sup, err := newSupervisor()
		if err != nil {
			log.Fatal(err)
		}
		for _, peer := range sup.GetPeers() {
			log.Infof("%s  %s", peer.ID, peer.Name)
		}
	},
}
