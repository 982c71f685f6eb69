package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const oggPageDuration = 20 * time.Millisecond

// FileSource plays an IVF video file and an Ogg/Opus audio file in a loop,
// standing in for a capture device.
type FileSource struct {
	VideoPath string
	AudioPath string
}

// Acquire opens the configured files and starts pacing their samples into
// local tracks. Playback stops when ctx is done or the stream is closed.
func (f *FileSource) Acquire(ctx context.Context, kind Kind, c Constraints) (*LocalStream, error) {
	streamID := "warpcast-" + string(kind) + "-" + uuid.NewString()[:8]
	ctx, cancel := context.WithCancel(ctx)

	var (
		players []func()
		tracks  []pion.TrackLocal
	)

	if c.Video && f.VideoPath != "" {
		track, play, err := f.video(ctx, streamID)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: video %s: %v", ErrNoDevice, f.VideoPath, err)
		}
		tracks = append(tracks, track)
		players = append(players, play)
	}

	if c.Audio && f.AudioPath != "" {
		track, play, err := f.audio(ctx, streamID)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: audio %s: %v", ErrNoDevice, f.AudioPath, err)
		}
		tracks = append(tracks, track)
		players = append(players, play)
	}

	if len(tracks) == 0 {
		cancel()
		return nil, fmt.Errorf("%w: no %s input configured", ErrNoDevice, kind)
	}

	var wg sync.WaitGroup
	for _, play := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			play()
		}()
	}

	var once sync.Once
	return &LocalStream{
		ID:     streamID,
		Tracks: tracks,
		stop: func() {
			once.Do(func() {
				cancel()
				wg.Wait()
			})
		},
	}, nil
}

func (f *FileSource) video(ctx context.Context, streamID string) (pion.TrackLocal, func(), error) {
	file, err := os.Open(f.VideoPath)
	if err != nil {
		return nil, nil, err
	}
	_, header, err := ivfreader.NewWith(file)
	file.Close()
	if err != nil {
		return nil, nil, err
	}

	var mime string
	switch header.FourCC {
	case "VP80":
		mime = pion.MimeTypeVP8
	case "VP90":
		mime = pion.MimeTypeVP9
	case "AV01":
		mime = pion.MimeTypeAV1
	default:
		return nil, nil, fmt.Errorf("unsupported ivf codec %q", header.FourCC)
	}
	if header.TimebaseDenominator == 0 {
		return nil, nil, errors.New("ivf header has zero timebase")
	}

	track, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: mime}, "video", streamID)
	if err != nil {
		return nil, nil, err
	}

	frameDuration := time.Duration(float64(time.Second) * float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator))

	play := func() {
		for {
			if err := playIVF(ctx, f.VideoPath, track, frameDuration); err != nil {
				if ctx.Err() == nil {
					slog.Error("video playback stopped", "file", f.VideoPath, "err", err)
				}
				return
			}
		}
	}
	return track, play, nil
}

// playIVF sends every frame of path once. It returns nil at end of file so the
// caller can loop.
func playIVF(ctx context.Context, path string, track *pion.TrackLocalStaticSample, frameDuration time.Duration) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	ivf, _, err := ivfreader.NewWith(file)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, _, err := ivf.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
			return err
		}
	}
}

func (f *FileSource) audio(ctx context.Context, streamID string) (pion.TrackLocal, func(), error) {
	file, err := os.Open(f.AudioPath)
	if err != nil {
		return nil, nil, err
	}
	_, header, err := oggreader.NewWith(file)
	file.Close()
	if err != nil {
		return nil, nil, err
	}

	track, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{
		MimeType:  pion.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  uint16(header.Channels),
	}, "audio", streamID)
	if err != nil {
		return nil, nil, err
	}

	play := func() {
		for {
			if err := playOgg(ctx, f.AudioPath, track); err != nil {
				if ctx.Err() == nil {
					slog.Error("audio playback stopped", "file", f.AudioPath, "err", err)
				}
				return
			}
		}
	}
	return track, play, nil
}

func playOgg(ctx context.Context, path string, track *pion.TrackLocalStaticSample) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	ogg, _, err := oggreader.NewWith(file)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		page, pageHeader, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		// Granule position counts 48kHz samples from the start of the stream.
		samples := float64(pageHeader.GranulePosition - lastGranule)
		lastGranule = pageHeader.GranulePosition
		duration := time.Duration(samples / 48000 * float64(time.Second))

		if err := track.WriteSample(pionmedia.Sample{Data: page, Duration: duration}); err != nil {
			return err
		}
	}
}
