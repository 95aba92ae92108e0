package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/mailgun/timetools"

	"github.com/sirosfoundation/go-wssec/pkg/derivedkey"
	"github.com/sirosfoundation/go-wssec/pkg/nonce"
	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
)

var (
	// ErrInvalidConfiguration is returned by Open for unusable settings
	ErrInvalidConfiguration = errors.New("invalid security protocol configuration")
	// ErrReplayDetectionUnsupported is returned when replay detection is
	// requested from a protocol that cannot perform it
	ErrReplayDetectionUnsupported = errors.New("protocol does not support replay detection")
	// ErrDuplicateAuthenticator is returned when two authenticators of the
	// same or related types are registered for one action
	ErrDuplicateAuthenticator = errors.New("duplicate supporting token authenticator type")
)

// Defaults applied by NewBuilder
const (
	DefaultReplayWindow              = 5 * time.Minute
	DefaultMaxClockSkew              = 5 * time.Minute
	DefaultMaxCachedNonces           = 900000
	DefaultTimestampValidityDuration = 5 * time.Minute
)

// Builder holds the settings of a security protocol. It is not safe for
// concurrent use; Open copies what it needs, so later changes to the
// builder do not affect an opened Factory.
type Builder struct {
	IncomingAlgorithmSuite suite.AlgorithmSuite
	OutgoingAlgorithmSuite suite.AlgorithmSuite

	DetectReplays   bool
	ReplayWindow    time.Duration
	MaxClockSkew    time.Duration
	MaxCachedNonces int
	// NonceCache replaces the in-memory cache built by Open. The caller
	// keeps ownership and closes it.
	NonceCache nonce.Cache

	TimestampValidityDuration time.Duration
	SecureConversationVersion security.SecureConversationVersion
	// SupportsReplayDetection is a property of the concrete protocol
	SupportsReplayDetection bool

	EndpointSupportingTokenAuthenticators []SupportingTokenSpec
	// ScopedSupportingTokenAuthenticators maps an action, or WildcardAction,
	// to its supporting tokens
	ScopedSupportingTokenAuthenticators map[string][]SupportingTokenSpec

	// DerivedKeyCache is created with the default size when nil
	DerivedKeyCache *derivedkey.Cache
	// MaxDerivedKeyLength bounds offset plus length of incoming derived
	// keys, in bytes. Zero means derivedkey.MaxDerivedKeyLength.
	MaxDerivedKeyLength int

	Logger *slog.Logger
	Clock  timetools.TimeProvider
}

// NewBuilder returns a builder with the default settings
func NewBuilder() *Builder {
	return &Builder{
		IncomingAlgorithmSuite:    suite.Default,
		OutgoingAlgorithmSuite:    suite.Default,
		DetectReplays:             true,
		ReplayWindow:              DefaultReplayWindow,
		MaxClockSkew:              DefaultMaxClockSkew,
		MaxCachedNonces:           DefaultMaxCachedNonces,
		TimestampValidityDuration: DefaultTimestampValidityDuration,
		SecureConversationVersion: security.SecureConversationDec2005,
		SupportsReplayDetection:   true,
	}
}

func (b *Builder) validate() error {
	if b.IncomingAlgorithmSuite == nil {
		return fmt.Errorf("%w: incoming algorithm suite is required", ErrInvalidConfiguration)
	}
	if b.OutgoingAlgorithmSuite == nil {
		return fmt.Errorf("%w: outgoing algorithm suite is required", ErrInvalidConfiguration)
	}
	if b.MaxCachedNonces <= 0 {
		return fmt.Errorf("%w: max cached nonces must be positive, got %d", ErrInvalidConfiguration, b.MaxCachedNonces)
	}
	if b.ReplayWindow <= 0 {
		return fmt.Errorf("%w: replay window must be positive, got %v", ErrInvalidConfiguration, b.ReplayWindow)
	}
	if b.MaxClockSkew < 0 {
		return fmt.Errorf("%w: max clock skew must not be negative, got %v", ErrInvalidConfiguration, b.MaxClockSkew)
	}
	if b.TimestampValidityDuration <= 0 {
		return fmt.Errorf("%w: timestamp validity must be positive, got %v", ErrInvalidConfiguration, b.TimestampValidityDuration)
	}
	if _, err := suite.KeyDerivationAlgorithm(b.SecureConversationVersion); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if b.MaxDerivedKeyLength < 0 || b.MaxDerivedKeyLength > derivedkey.MaxDerivedKeyLength {
		return fmt.Errorf("%w: max derived key length %d outside [0, %d]",
			ErrInvalidConfiguration, b.MaxDerivedKeyLength, derivedkey.MaxDerivedKeyLength)
	}
	return nil
}

// Open validates the settings and returns an opened Factory.
//
// Supporting-token authenticators are opened one at a time under ctx. No
// further Open is started once ctx is done. If any Open fails, the
// authenticators opened so far are aborted.
func (b *Builder) Open(ctx context.Context) (*Factory, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "security-protocol"))

	clock := b.Clock
	if clock == nil {
		clock = &timetools.RealTime{}
	}

	f := &Factory{
		incoming:            b.IncomingAlgorithmSuite,
		outgoing:            b.OutgoingAlgorithmSuite,
		detectReplays:       b.DetectReplays,
		replayWindow:        b.ReplayWindow,
		maxClockSkew:        b.MaxClockSkew,
		maxCachedNonces:     b.MaxCachedNonces,
		timestampValidity:   b.TimestampValidityDuration,
		version:             b.SecureConversationVersion,
		dkCache:             b.DerivedKeyCache,
		maxDerivedKeyLength: b.MaxDerivedKeyLength,
		logger:              logger,
		clock:               clock,
	}
	if f.maxDerivedKeyLength == 0 {
		f.maxDerivedKeyLength = derivedkey.MaxDerivedKeyLength
	}
	if f.dkCache == nil {
		dk, err := derivedkey.NewCache(0)
		if err != nil {
			return nil, err
		}
		f.dkCache = dk
	}

	if b.DetectReplays {
		if !b.SupportsReplayDetection {
			return nil, ErrReplayDetectionUnsupported
		}
		span, err := nonce.CachingTimeSpanFor(b.ReplayWindow, b.MaxClockSkew)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		if b.NonceCache != nil {
			f.nonceCache = b.NonceCache
		} else {
			nc, err := nonce.NewInMemory(span, b.MaxCachedNonces,
				nonce.WithClock(clock), nonce.WithLogger(b.Logger))
			if err != nil {
				return nil, fmt.Errorf("failed to create nonce cache: %w", err)
			}
			f.nonceCache = nc
			f.ownsNonceCache = true
		}
	}

	endpoint := slices.Clone(b.EndpointSupportingTokenAuthenticators)
	scoped := make(map[string][]SupportingTokenSpec, len(b.ScopedSupportingTokenAuthenticators))
	for action, specs := range b.ScopedSupportingTokenAuthenticators {
		scoped[action] = slices.Clone(specs)
	}

	merged, err := mergeSupportingTokens(endpoint, scoped)
	if err != nil {
		f.releaseNonceCache()
		return nil, err
	}
	f.merged = merged
	f.authenticators = distinctAuthenticators(endpoint, scoped)

	if err := f.openAuthenticators(ctx); err != nil {
		f.releaseNonceCache()
		return nil, err
	}

	actions := make([]string, 0, len(merged))
	for action := range merged {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	logger.Info("security protocol opened",
		slog.String("incoming_suite", f.incoming.Name()),
		slog.String("outgoing_suite", f.outgoing.Name()),
		slog.Bool("detect_replays", f.detectReplays),
		slog.Int("authenticators", len(f.authenticators)),
		slog.Any("actions", actions))
	return f, nil
}
