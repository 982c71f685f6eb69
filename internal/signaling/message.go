package signaling

import (
	"encoding/json"
	"fmt"

	pion "github.com/pion/webrtc/v4"
)

// Kind is the event name a signal travels under on the relay.
type Kind string

const (
	KindOffer      Kind = "offer"
	KindAnswer     Kind = "answer"
	KindCandidates Kind = "candidates"
)

// Signal is one of Offer, Answer or Candidates.
type Signal interface {
	Kind() Kind
	LinkID() string
}

// Offer carries the sender's session description for one link. Seq numbers
// the offers made on a link, starting at 1.
type Offer struct {
	Link  string                  `json:"link,omitempty"`
	Seq   uint64                  `json:"seq,omitempty"`
	Offer pion.SessionDescription `json:"offer"`
}

// Answer is the receiver's reply to the Offer with the same link id and Seq.
type Answer struct {
	Link   string                  `json:"link,omitempty"`
	Seq    uint64                  `json:"seq,omitempty"`
	Answer pion.SessionDescription `json:"answer"`
}

// Candidates is a batch of ICE candidates. Peer is filled in on receipt from
// the topic the batch arrived on and is never serialized.
type Candidates struct {
	Link       string                  `json:"link,omitempty"`
	Candidates []pion.ICECandidateInit `json:"candidates"`
	Peer       string                  `json:"-"`
}

func (Offer) Kind() Kind      { return KindOffer }
func (Answer) Kind() Kind     { return KindAnswer }
func (Candidates) Kind() Kind { return KindCandidates }

func (o Offer) LinkID() string      { return o.Link }
func (a Answer) LinkID() string     { return a.Link }
func (c Candidates) LinkID() string { return c.Link }

// EncodeSignal renders the JSON payload broadcast for s.
func EncodeSignal(s Signal) (json.RawMessage, error) {
	if err := validateSignal(s); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeSignal parses a payload received under kind.
func DecodeSignal(kind Kind, payload []byte) (Signal, error) {
	var (
		sig Signal
		err error
	)
	switch kind {
	case KindOffer:
		var o Offer
		err = json.Unmarshal(payload, &o)
		sig = o
	case KindAnswer:
		var a Answer
		err = json.Unmarshal(payload, &a)
		sig = a
	case KindCandidates:
		var c Candidates
		err = json.Unmarshal(payload, &c)
		sig = c
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSignal, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSignal, kind, err)
	}
	if err := validateSignal(sig); err != nil {
		return nil, err
	}
	return sig, nil
}

func validateSignal(s Signal) error {
	switch v := s.(type) {
	case Offer:
		if v.Seq == 0 {
			return fmt.Errorf("%w: offer without seq", ErrInvalidSignal)
		}
		return validateDescription(KindOffer, v.Offer, pion.SDPTypeOffer)
	case Answer:
		if v.Seq == 0 {
			return fmt.Errorf("%w: answer without seq", ErrInvalidSignal)
		}
		return validateDescription(KindAnswer, v.Answer, pion.SDPTypeAnswer)
	case Candidates:
		if len(v.Candidates) == 0 {
			return fmt.Errorf("%w: empty candidate batch", ErrInvalidSignal)
		}
		return nil
	case nil:
		return fmt.Errorf("%w: nil signal", ErrInvalidSignal)
	}
	return fmt.Errorf("%w: unsupported signal %T", ErrInvalidSignal, s)
}

func validateDescription(kind Kind, desc pion.SessionDescription, want pion.SDPType) error {
	if desc.Type != want {
		return fmt.Errorf("%w: %s has sdp type %q", ErrInvalidSignal, kind, desc.Type)
	}
	if desc.SDP == "" {
		return fmt.Errorf("%w: %s has empty sdp", ErrInvalidSignal, kind)
	}
	return nil
}
