package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/session"
	"github.com/BioHazard786/Warpcast/internal/ui"
)

var (
	streamNet    netFlags
	flagVideo    string
	flagAudio    string
	flagRoom     string
	flagCamera   bool
	flagSenderID string
)

var streamCmd = &cobra.Command{
	Use:     "stream",
	Aliases: []string{"s"},
	Short:   "Start a room and stream media into it",
	Long: `Start a room and offer a live stream to everyone who joins it.

Video is read from an IVF file (VP8, VP9 or AV1) and audio from an Ogg/Opus
file; both are looped at their native pace.

Examples:
  warpcast stream --video screen.ivf
  warpcast stream --video cam.ivf --audio mic.ogg --camera
  warpcast stream --video screen.ivf --room sleepy-otter-comet --relay`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stream(cmd.Context())
	},
}

func stream(ctx context.Context) error {
	if flagVideo == "" && flagAudio == "" {
		return fmt.Errorf("nothing to stream: pass --video and/or --audio")
	}

	cfg, err := streamNet.load()
	if err != nil {
		return err
	}

	kind := media.KindScreen
	if flagCamera {
		kind = media.KindCamera
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board := ui.NewBoard(ui.IconStream+" Peers", cancel)

	fmt.Println()
	sp := ui.NewConnectionSpinner("Connecting to relay...")
	sp.Start()

	summary, err := session.RunSender(ctx, session.Options{
		Config: cfg,
		Room:   flagRoom,
		PeerID: flagSenderID,
		Source: &media.FileSource{VideoPath: flagVideo, AudioPath: flagAudio},
		Kind:   kind,
		Constraints: media.Constraints{
			Video: flagVideo != "",
			Audio: flagAudio != "",
		},
		Observer: board.Observe,
		OnReady: func(r session.Ready) {
			sp.Stop()
			fmt.Println(ui.NewRoomInfo(r.Room, cfg.RoomLink(r.Room)).View())
			board.Start()
		},
	})
	sp.Stop()
	board.Stop()

	if err != nil {
		if errors.Is(err, media.ErrNoDevice) {
			return fmt.Errorf("cannot open media input: %w", err)
		}
		return err
	}

	fmt.Println()
	ui.RenderLinkSummary("Session Summary", summary.Links)
	return nil
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamNet.register(streamCmd)
	streamCmd.Flags().StringVar(&flagVideo, "video", "", "IVF file to stream as video")
	streamCmd.Flags().StringVar(&flagAudio, "audio", "", "Ogg/Opus file to stream as audio")
	streamCmd.Flags().StringVar(&flagRoom, "room", "", "Room ID to use (generated when empty)")
	streamCmd.Flags().BoolVar(&flagCamera, "camera", false, "Label the stream as a camera instead of a screen")
	streamCmd.Flags().StringVar(&flagSenderID, "id", "", "Participant ID (generated when empty)")
}
