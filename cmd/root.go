package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcast/internal/ui"
	"github.com/BioHazard786/Warpcast/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warpcast",
	Short: "Peer-to-peer live stream sharing over WebRTC",
	Long: `Warpcast shares a live audio/video stream directly between devices using WebRTC.
A small relay server only carries the signaling; media flows peer to peer.

  warpcast stream --video screen.ivf       start a room and stream into it
  warpcast watch <room-id|url>             join a room and record what it shows
  warpcast relay                           run the signaling relay`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
