package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// roomPattern restricts room ids to characters that are safe inside a relay
// topic name and a URL path segment.
var roomPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// NewPeerID returns a fresh participant identity.
func NewPeerID() string {
	return uuid.NewString()
}

// NewLinkID returns a fresh id for one negotiation attempt with a counterpart.
func NewLinkID() string {
	return uuid.NewString()
}

// NewRoomID returns a memorable room id such as "sleepy-otter-comet".
func NewRoomID() string {
	return strings.Join([]string{
		pickWord(adjectives),
		pickWord(creatures),
		pickWord(things),
	}, "-")
}

// ValidateRoomID rejects ids that cannot be embedded in a topic name.
func ValidateRoomID(id string) error {
	if !roomPattern.MatchString(id) {
		return fmt.Errorf("invalid room id %q", id)
	}
	return nil
}

// ValidatePeerID rejects empty ids and ids containing the topic separator.
func ValidatePeerID(id string) error {
	if id == "" || strings.ContainsAny(id, ": \t\n") {
		return fmt.Errorf("invalid peer id %q", id)
	}
	return nil
}

func pickWord(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return words[n.Int64()]
}
