// Package checkpoint produces and verifies signed commitments to a sparse
// merkle tree state. A checkpoint is a COSE_Sign1 envelope over a
// deterministic CBOR encoding of the root and leaf count, so a holder can
// later prove which state an operator attested to, independent of the
// tree or its store.
package checkpoint

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/forestrie/go-smt/smt"
)

var (
	ErrVerifyFailed   = errors.New("checkpoint: signature verification failed")
	ErrMalformed      = errors.New("checkpoint: malformed envelope")
	ErrRootWidth      = errors.New("checkpoint: root must be 32 bytes")
	ErrIssuerMismatch = errors.New("checkpoint: unexpected issuer")
)

// HeaderLabelIssuer is the protected header label carrying the signer
// identity.
const HeaderLabelIssuer = "issuer"

// State is the attested tree state.
type State struct {
	// Root commits to the full tree content.
	Root []byte `cbor:"1,keyasint"`
	// LeafCount is the number of distinct non-zero leaves behind Root.
	LeafCount uint64 `cbor:"2,keyasint"`
	// Timestamp is the unix time (milliseconds) read at signing. Including
	// it allows the same root to be re-signed.
	Timestamp int64 `cbor:"3,keyasint"`
}

// NewState captures the current state of a tree.
func NewState[V smt.Value[V]](tree *smt.SparseMerkleTree[V]) (State, error) {
	n, err := tree.Store().LeafCount()
	if err != nil {
		return State{}, err
	}
	root := tree.Root()
	return State{
		Root:      append([]byte(nil), root[:]...),
		LeafCount: n,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// RootSigner signs tree states on behalf of one issuer.
type RootSigner struct {
	issuer string
	enc    cbor.EncMode
}

func NewRootSigner(issuer string) (RootSigner, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return RootSigner{}, err
	}
	return RootSigner{issuer: issuer, enc: enc}, nil
}

// Sign1 signs state and returns the serialized COSE_Sign1 envelope.
func (rs RootSigner) Sign1(signer cose.Signer, state State) ([]byte, error) {
	if len(state.Root) != smt.HashBytes {
		return nil, ErrRootWidth
	}
	payload, err := rs.enc.Marshal(state)
	if err != nil {
		return nil, err
	}

	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: signer.Algorithm(),
				HeaderLabelIssuer:         rs.issuer,
			},
		},
		Payload: payload,
	}
	if err = msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

// VerifySignedState checks the envelope signature and returns the attested
// state. When issuer is non-empty the envelope's issuer header must match.
// The caller remains responsible for comparing State.Root against a root
// it trusts or recomputes.
func VerifySignedState(verifier cose.Verifier, issuer string, envelope []byte) (State, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(envelope); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	if issuer != "" {
		got, ok := msg.Headers.Protected[HeaderLabelIssuer].(string)
		if !ok || got != issuer {
			return State{}, ErrIssuerMismatch
		}
	}

	var state State
	if err := cbor.Unmarshal(msg.Payload, &state); err != nil {
		return State{}, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	if len(state.Root) != smt.HashBytes {
		return State{}, ErrRootWidth
	}
	return state, nil
}
