package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teleportd/teleport/pairing"
)

func init() {
	RootCmd.AddCommand(secretCmd)
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "print a pairing ticket for this device's current secret",
	Run: func(cmd *cobra.Command, args []string) {
		sup, err := newSupervisor()
		if err != nil {
			log.Fatal(err)
		}
		ticket := pairing.Ticket{
			Addr: pairing.PeerAddress{
				ID:   sup.LocalID(),
				Hint: sup.GetLocalAddr(),
			},
			Secret: sup.GetSecret(),
		}
		log.Infof("ticket: %s", ticket.Encode())
	},
}
