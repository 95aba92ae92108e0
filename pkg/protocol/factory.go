package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mailgun/timetools"

	"github.com/sirosfoundation/go-wssec/pkg/derivedkey"
	"github.com/sirosfoundation/go-wssec/pkg/nonce"
	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
)

var (
	// ErrReplayDetected is returned when a nonce or signature value has
	// already been seen within the replay window
	ErrReplayDetected = errors.New("replay detected")
	// ErrFactoryClosed is returned by operations on a closed factory
	ErrFactoryClosed = errors.New("security protocol factory is closed")
	// ErrReplayDetectionDisabled is returned by nonce operations when the
	// factory was opened without replay detection
	ErrReplayDetectionDisabled = errors.New("replay detection is disabled")
)

// Factory is an opened security protocol. Its settings are fixed; it is
// safe for concurrent use.
type Factory struct {
	incoming            suite.AlgorithmSuite
	outgoing            suite.AlgorithmSuite
	detectReplays       bool
	replayWindow        time.Duration
	maxClockSkew        time.Duration
	maxCachedNonces     int
	timestampValidity   time.Duration
	version             security.SecureConversationVersion
	nonceCache          nonce.Cache
	ownsNonceCache      bool
	dkCache             *derivedkey.Cache
	maxDerivedKeyLength int
	merged              map[string]*MergedSupportingTokenSpec
	authenticators      []Authenticator
	logger              *slog.Logger
	clock               timetools.TimeProvider

	mu     sync.Mutex
	closed bool
}

func (f *Factory) IncomingAlgorithmSuite() suite.AlgorithmSuite { return f.incoming }

func (f *Factory) OutgoingAlgorithmSuite() suite.AlgorithmSuite { return f.outgoing }

func (f *Factory) DetectReplays() bool { return f.detectReplays }

func (f *Factory) ReplayWindow() time.Duration { return f.replayWindow }

func (f *Factory) MaxClockSkew() time.Duration { return f.maxClockSkew }

func (f *Factory) MaxCachedNonces() int { return f.maxCachedNonces }

func (f *Factory) TimestampValidityDuration() time.Duration { return f.timestampValidity }

func (f *Factory) SecureConversationVersion() security.SecureConversationVersion {
	return f.version
}

// NonceCache returns the nonce cache, nil when replay detection is off
func (f *Factory) NonceCache() nonce.Cache { return f.nonceCache }

// DerivedKeyCache returns the cache used for derived keys
func (f *Factory) DerivedKeyCache() *derivedkey.Cache { return f.dkCache }

// SupportingTokenAuthenticators returns the merged supporting tokens for
// action, falling back to the wildcard entry. It returns nil when neither
// exists.
func (f *Factory) SupportingTokenAuthenticators(action string) *MergedSupportingTokenSpec {
	if m, ok := f.merged[action]; ok {
		return m
	}
	return f.merged[WildcardAction]
}

// Actions returns the actions with their own supporting tokens, the
// wildcard included
func (f *Factory) Actions() []string {
	out := make([]string, 0, len(f.merged))
	for action := range f.merged {
		out = append(out, action)
	}
	return out
}

func (f *Factory) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// TryAddNonce records n in the nonce cache. It returns false on replay.
func (f *Factory) TryAddNonce(ctx context.Context, n []byte) (bool, error) {
	if f.isClosed() {
		return false, ErrFactoryClosed
	}
	if f.nonceCache == nil {
		return false, ErrReplayDetectionDisabled
	}
	return f.nonceCache.TryAddNonce(ctx, n)
}

// CheckReplay records n and returns ErrReplayDetected if it was already
// live. Quota and backend errors are returned as they are.
func (f *Factory) CheckReplay(ctx context.Context, n []byte) error {
	ok, err := f.TryAddNonce(ctx, n)
	if err != nil {
		return err
	}
	if !ok {
		f.logger.Warn("replay detected", slog.Int("nonce_length", len(n)))
		return ErrReplayDetected
	}
	return nil
}

func (f *Factory) openAuthenticators(ctx context.Context) error {
	for i, a := range f.authenticators {
		if err := ctx.Err(); err != nil {
			abortAll(f.authenticators[:i])
			return fmt.Errorf("opening supporting token authenticators: %w", err)
		}
		if err := a.Open(ctx); err != nil {
			abortAll(f.authenticators[:i+1])
			return fmt.Errorf("failed to open supporting token authenticator %T: %w", a, err)
		}
	}
	return nil
}

// Close closes the authenticators one at a time under ctx and releases the
// nonce cache if the factory created it. On error or when ctx is done the
// remaining authenticators are aborted.
func (f *Factory) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	var closeErr error
	for i, a := range f.authenticators {
		if err := ctx.Err(); err != nil {
			abortAll(f.authenticators[i:])
			closeErr = fmt.Errorf("closing supporting token authenticators: %w", err)
			break
		}
		if err := a.Close(ctx); err != nil {
			abortAll(f.authenticators[i+1:])
			closeErr = fmt.Errorf("failed to close supporting token authenticator %T: %w", a, err)
			break
		}
	}

	if err := f.releaseNonceCache(); err != nil && closeErr == nil {
		closeErr = err
	}

	f.logger.Info("security protocol closed", slog.Bool("clean", closeErr == nil))
	return closeErr
}

// Abort aborts every authenticator without waiting and releases the owned
// nonce cache
func (f *Factory) Abort() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	abortAll(f.authenticators)
	if err := f.releaseNonceCache(); err != nil {
		f.logger.Warn("failed to release nonce cache", slog.String("error", err.Error()))
	}
	f.logger.Info("security protocol aborted")
}

func (f *Factory) releaseNonceCache() error {
	if !f.ownsNonceCache {
		return nil
	}
	if c, ok := f.nonceCache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func abortAll(as []Authenticator) {
	for _, a := range as {
		a.Abort()
	}
}
