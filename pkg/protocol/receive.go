package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sirosfoundation/go-wssec/pkg/derivedkey"
	"github.com/sirosfoundation/go-wssec/pkg/header"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

var (
	// ErrInvalidTimestamp is returned for a timestamp created in the future
	// or already expired
	ErrInvalidTimestamp = errors.New("invalid message timestamp")
	// ErrStaleMessage is returned for a timestamp older than the replay
	// window
	ErrStaleMessage = errors.New("message timestamp is older than the replay window")
	// ErrMissingTimestamp is returned when replay detection requires a
	// timestamp and the header has none
	ErrMissingTimestamp = errors.New("security header has no timestamp")
	// ErrUnsupportedDerivation is returned for a derived-key token whose
	// algorithm the incoming suite does not accept
	ErrUnsupportedDerivation = errors.New("key derivation algorithm not supported by algorithm suite")
	// ErrDerivedKeyTooLong is returned when offset plus length of a
	// derived-key token exceeds the configured maximum
	ErrDerivedKeyTooLong = errors.New("derived key exceeds maximum length")
)

// VerifyTimestamp checks a message timestamp against the clock. Created
// may be ahead by at most the clock skew, Expires (if not zero) may be
// behind by at most the clock skew, and with replay detection on the
// message must have been created within the replay window.
func (f *Factory) VerifyTimestamp(created, expires time.Time) error {
	now := f.clock.UtcNow()

	if created.After(now.Add(f.maxClockSkew)) {
		return fmt.Errorf("%w: created %s is in the future", ErrInvalidTimestamp, created.Format(time.RFC3339))
	}
	if !expires.IsZero() {
		if expires.Before(created) {
			return fmt.Errorf("%w: expires before created", ErrInvalidTimestamp)
		}
		if !expires.After(now.Add(-f.maxClockSkew)) {
			return fmt.Errorf("%w: expired at %s", ErrInvalidTimestamp, expires.Format(time.RFC3339))
		}
	}
	if f.detectReplays && !created.After(now.Add(-f.replayWindow-f.maxClockSkew)) {
		return fmt.Errorf("%w: created %s", ErrStaleMessage, created.Format(time.RFC3339))
	}
	return nil
}

// ProcessIncomingHeader applies the receive-side checks to a parsed
// Security header: timestamp freshness, derived-key token limits, and
// replay detection of signature values and UsernameToken nonces. Nothing
// is recorded in the nonce cache unless the earlier checks pass.
func (f *Factory) ProcessIncomingHeader(ctx context.Context, h *header.SecurityHeader) error {
	if f.isClosed() {
		return ErrFactoryClosed
	}
	if h == nil {
		return header.ErrNoSecurityHeader
	}

	if h.Timestamp != nil {
		if err := f.VerifyTimestamp(h.Timestamp.Created, h.Timestamp.Expires); err != nil {
			return err
		}
	} else if f.detectReplays {
		return ErrMissingTimestamp
	}

	for _, dk := range h.DerivedKeyTokens {
		if err := f.checkDerivedKeyToken(dk); err != nil {
			return err
		}
	}

	if !f.detectReplays {
		return nil
	}
	return f.recordNonces(ctx, h)
}

type messageNonce struct {
	value []byte
	where string
}

// recordNonces checks every nonce of the message before recording any of
// them, so a message rejected as a replay leaves the cache untouched. A
// nonce repeated within the message is a replay.
func (f *Factory) recordNonces(ctx context.Context, h *header.SecurityHeader) error {
	var nonces []messageNonce
	for _, sv := range h.SignatureValues {
		nonces = append(nonces, messageNonce{value: sv, where: "signature value"})
	}
	for _, ut := range h.UsernameTokens {
		if len(ut.Nonce) == 0 {
			continue
		}
		nonces = append(nonces, messageNonce{value: ut.Nonce, where: "username token " + ut.Username + " nonce"})
	}

	seen := make(map[string]struct{}, len(nonces))
	for _, n := range nonces {
		if _, dup := seen[string(n.value)]; dup {
			f.logger.Warn("nonce repeated within message", slog.String("where", n.where))
			return fmt.Errorf("%s: %w", n.where, ErrReplayDetected)
		}
		seen[string(n.value)] = struct{}{}

		live, err := f.nonceCache.CheckNonce(ctx, n.value)
		if err != nil {
			return fmt.Errorf("%s: %w", n.where, err)
		}
		if live {
			f.logger.Warn("replay detected", slog.Int("nonce_length", len(n.value)))
			return fmt.Errorf("%s: %w", n.where, ErrReplayDetected)
		}
	}

	for _, n := range nonces {
		if err := f.CheckReplay(ctx, n.value); err != nil {
			return fmt.Errorf("%s: %w", n.where, err)
		}
	}
	return nil
}

func (f *Factory) checkDerivedKeyToken(dk header.DerivedKeyToken) error {
	if !f.incoming.IsSignatureKeyDerivationAlgorithmSupported(dk.Algorithm) &&
		!f.incoming.IsEncryptionKeyDerivationAlgorithmSupported(dk.Algorithm) {
		return fmt.Errorf("%w: %s in suite %s", ErrUnsupportedDerivation, dk.Algorithm, f.incoming.Name())
	}
	length, limit := dk.EffectiveLength(), f.maxDerivedKeyLength
	tooLong := length > limit
	switch {
	case tooLong:
	case dk.Generation >= 0:
		tooLong = dk.Generation > limit/length-1
	case dk.Offset >= 0:
		tooLong = dk.Offset > limit-length
	}
	if tooLong {
		return fmt.Errorf("%w: offset %d length %d, maximum %d",
			ErrDerivedKeyTooLong, dk.EffectiveOffset(), length, limit)
	}
	return nil
}

// ResolveDerivedKey computes the key of an incoming derived-key token from
// its base token, through the factory's derived key cache
func (f *Factory) ResolveDerivedKey(base token.SecurityToken, dk header.DerivedKeyToken) (*derivedkey.Token, error) {
	if err := f.checkDerivedKeyToken(dk); err != nil {
		return nil, err
	}

	opts := []derivedkey.TokenOption{
		derivedkey.WithNonce(dk.Nonce),
		derivedkey.WithCache(f.dkCache),
	}
	if dk.ID != "" {
		opts = append(opts, derivedkey.WithID(dk.ID))
	}
	if dk.Label != "" {
		opts = append(opts, derivedkey.WithLabel(dk.Label))
	}
	if dk.Generation >= 0 {
		opts = append(opts, derivedkey.WithGeneration(dk.Generation))
	} else {
		opts = append(opts, derivedkey.WithOffset(dk.EffectiveOffset()))
	}

	return derivedkey.NewToken(base, dk.Algorithm, dk.EffectiveLength()*8, opts...)
}
