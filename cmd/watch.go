package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/session"
	"github.com/BioHazard786/Warpcast/internal/ui"
)

var (
	watchNet       netFlags
	flagWatchDir   string
	flagReceiverID string
)

var watchCmd = &cobra.Command{
	Use:     "watch <room-id|url>",
	Aliases: []string{"w"},
	Short:   "Join a room and record its stream",
	Long: `Join a room, answer the sender's offer and record the incoming stream.
VP8 video is written as IVF and Opus audio as Ogg.

Examples:
  warpcast watch sleepy-otter-comet
  warpcast watch https://warpcast.qzz.io/r/sleepy-otter-comet
  warpcast watch sleepy-otter-comet --out recordings --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
		return watch(cmd.Context(), room)
	},
}

func watch(ctx context.Context, room string) error {
	cfg, err := watchNet.load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recorder := media.NewRecorder(flagWatchDir)
	board := ui.NewBoard(ui.IconWatch+" Sender", cancel)

	fmt.Println()
	sp := ui.NewConnectionSpinner("Connecting to relay...")
	sp.Start()

	summary, err := session.RunReceiver(ctx, session.Options{
		Config:   cfg,
		Room:     room,
		PeerID:   flagReceiverID,
		Renderer: recorder,
		Observer: board.Observe,
		Logger:   slog.Default().With("room", room),
		OnReady: func(r session.Ready) {
			sp.Stop()
			ui.PrintSuccessf("Joined room %s as %s", r.Room, r.Self)
			board.Start()
		},
	})
	sp.Stop()
	board.Stop()
	recorder.Wait()

	if err != nil {
		return err
	}

	fmt.Println()
	ui.RenderLinkSummary("Session Summary", summary.Links)
	for _, rec := range recorder.Recordings() {
		abs, _ := filepath.Abs(rec.Path)
		ui.PrintInfof("%s %s %s (%d packets)", ui.IconRecord, rec.Codec, abs, rec.Packets)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchNet.register(watchCmd)
	watchCmd.Flags().StringVarP(&flagWatchDir, "out", "o", "warpcast-recordings", "Directory to save recordings")
	watchCmd.Flags().StringVar(&flagReceiverID, "id", "", "Participant ID (generated when empty)")
}
