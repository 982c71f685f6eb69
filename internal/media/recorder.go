package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

type rtpWriter interface {
	WriteRTP(packet *rtp.Packet) error
	Close() error
}

// Recording describes one file written by a Recorder.
type Recording struct {
	Path    string
	Codec   string
	Packets int
}

// Recorder is a Renderer that saves VP8 video to IVF and Opus audio to Ogg.
type Recorder struct {
	Dir string

	mu         sync.Mutex
	recordings []*Recording
	wg         sync.WaitGroup
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{Dir: dir}
}

// Attach records every current and future track of stream.
func (r *Recorder) Attach(stream *RemoteStream) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	stream.OnTrack(func(t RemoteTrack) {
		w, rec, err := r.open(stream.ID(), t)
		if err != nil {
			slog.Warn("not recording track", "track", t.ID(), "err", err)
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.record(t, w, rec)
		}()
	})
	return nil
}

func (r *Recorder) open(streamID string, t RemoteTrack) (rtpWriter, *Recording, error) {
	codec := t.Codec()
	name := sanitize(streamID) + "-" + sanitize(t.ID())

	var (
		w    rtpWriter
		path string
		err  error
	)
	switch {
	case strings.EqualFold(codec.MimeType, pion.MimeTypeVP8):
		path = filepath.Join(r.Dir, name+".ivf")
		w, err = ivfwriter.New(path)
	case strings.EqualFold(codec.MimeType, pion.MimeTypeOpus):
		channels := codec.Channels
		if channels == 0 {
			channels = 2
		}
		path = filepath.Join(r.Dir, name+".ogg")
		w, err = oggwriter.New(path, codec.ClockRate, channels)
	default:
		return nil, nil, fmt.Errorf("unsupported codec %s", codec.MimeType)
	}
	if err != nil {
		return nil, nil, err
	}

	rec := &Recording{Path: path, Codec: codec.MimeType}
	r.mu.Lock()
	r.recordings = append(r.recordings, rec)
	r.mu.Unlock()
	return w, rec, nil
}

func (r *Recorder) record(t RemoteTrack, w rtpWriter, rec *Recording) {
	defer w.Close()

	for {
		packet, _, err := t.ReadRTP()
		if err != nil {
			slog.Debug("track ended", "track", t.ID(), "err", err)
			return
		}
		if err := w.WriteRTP(packet); err != nil {
			slog.Warn("write failed", "path", rec.Path, "err", err)
			return
		}
		r.mu.Lock()
		rec.Packets++
		r.mu.Unlock()
	}
}

// Wait blocks until every track being recorded has ended.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Recordings returns a copy of what has been written so far.
func (r *Recorder) Recordings() []Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recording, len(r.recordings))
	for i, rec := range r.recordings {
		out[i] = *rec
	}
	return out
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
