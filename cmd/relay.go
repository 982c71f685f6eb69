package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcast/internal/config"
	"github.com/BioHazard786/Warpcast/internal/relay"
)

var flagListen string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the signaling relay server",
	Long: `Run the presence and broadcast relay that stream and watch connect to.

Clients connect on /ws (add ?encoding=msgpack for binary frames); /health and
/stats report liveness and counters.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{RelayAddr: flagListen})
		if err != nil {
			return err
		}
		return relay.ListenAndServe(cmd.Context(), cfg.RelayAddr, relay.NewHub(slog.Default()))
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default :8080, or RELAY_ADDR)")
}
