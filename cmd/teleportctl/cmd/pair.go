package cmd

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teleportd/teleport/wire/pair"
)

var pairingCode string

func init() {
	RootCmd.AddCommand(pairCmd)
	pairCmd.Flags().StringVar(&pairingCode, "code", "", "the 6-character pairing code shown on both devices")
}

var pairCmd = &cobra.Command{
	Use:   "pair <ticket>",
	Short: "pair with a device from a ticket printed by its `secret` command",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sup, err := newSupervisor()
		if err != nil {
			log.Fatal(err)
		}

		var code pair.PairingCode
		copy(code[:], pairingCode)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		outcome := <-sup.PairWith(ctx, args[0], code)
		switch outcome.Kind {
		case pair.OutcomeSuccess:
			log.Infof("paired with %s (%s)", outcome.PeerName, outcome.PeerId)
		case pair.OutcomeWrongCode:
			log.Error("pairing code did not match")
		case pair.OutcomeWrongSecret:
			log.Error("secret was rejected (ticket may be stale)")
		default:
			log.Errorf("pairing failed: %v", outcome.Err)
		}
	},
}
