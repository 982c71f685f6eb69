package negotiation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/BioHazard786/Warpcast/internal/signaling"
)

var (
	// ErrUnknownPeer means a message referenced a counterpart with no link.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrMissingRoute means a message arrived without the peer id needed to
	// route it.
	ErrMissingRoute = errors.New("message has no peer id")

	// ErrStaleLink means a message carried the id of a link that has since
	// been replaced.
	ErrStaleLink = errors.New("message for a superseded link")

	ErrNotStable     = errors.New("link is not stable")
	ErrEngineStopped = errors.New("negotiation engine stopped")
	ErrOutboxFull    = errors.New("outbound signal queue full")
)

// Error records which operation failed for which peer.
type Error struct {
	Op   string
	Peer string
	Err  error
}

func (e *Error) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, peer string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Peer: peer, Err: err}
}

// levelFor picks how loudly a per-link error is logged. None of them stop
// the engine.
func levelFor(err error) slog.Level {
	switch {
	case errors.Is(err, ErrUnknownPeer), errors.Is(err, ErrStaleLink):
		return slog.LevelDebug
	case errors.Is(err, ErrMissingRoute), errors.Is(err, signaling.ErrSend), errors.Is(err, ErrOutboxFull):
		return slog.LevelWarn
	}
	return slog.LevelError
}
