package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(addrCmd)
}

var addrCmd = &cobra.Command{
	Use:   "addr",
	Short: "print this device's local address and id",
	Run: func(cmd *cobra.Command, args []string) {
		sup, err := newSupervisor()
		if err != nil {
			log.Fatal(err)
		}
		log.Infof("addr: %s", sup.GetLocalAddr())
		log.Infof("id:   %s", sup.LocalID())
	},
}
