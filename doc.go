// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gowssec implements the message-security core of a WS-Security and
WS-SecureConversation stack: replay detection, algorithm suites, key
derivation and key wrapping.

# Overview

go-wssec provides the parts of a WS-Security implementation that sit
between the XML layer and the transport. It remembers nonces and signature
values for the replay window, applies a named algorithm suite to pick
signature, key wrap and key derivation algorithms for a token, and opens the
supporting-token authenticators a protocol needs.

# Specifications Implemented

  - WS-Security 1.1.1: https://docs.oasis-open.org/wss/v1.1/
  - WS-SecureConversation 1.3 and February 2005: https://docs.oasis-open.org/ws-sx/ws-secureconversation/v1.3/
  - WS-SecurityPolicy 1.3 algorithm suites: https://docs.oasis-open.org/ws-sx/ws-securitypolicy/v1.3/
  - AES Key Wrap (RFC 3394): https://www.rfc-editor.org/rfc/rfc3394
  - P_SHA-1 (RFC 2246 section 5): https://www.rfc-editor.org/rfc/rfc2246

# Package Structure

	github.com/sirosfoundation/go-wssec/pkg/cache      - Time-bounded cache with quota and purge
	github.com/sirosfoundation/go-wssec/pkg/nonce      - Replay-detection nonce caches (memory, Badger)
	github.com/sirosfoundation/go-wssec/pkg/suite      - Named algorithm suites and algorithm selection
	github.com/sirosfoundation/go-wssec/pkg/security   - Algorithm identifiers and namespaces
	github.com/sirosfoundation/go-wssec/pkg/token      - Security tokens and keys
	github.com/sirosfoundation/go-wssec/pkg/derivedkey - PSHA1/HKDF key derivation and derived-key tokens
	github.com/sirosfoundation/go-wssec/pkg/keywrap    - AES and RSA key wrapping
	github.com/sirosfoundation/go-wssec/pkg/sctcache   - Security context token cache
	github.com/sirosfoundation/go-wssec/pkg/header     - Security header reader
	github.com/sirosfoundation/go-wssec/pkg/protocol   - Security protocol factory

The cmd/wssec-replayd command serves a shared replay cache over HTTP.

# Quick Start

	b := protocol.NewBuilder()
	b.OutgoingAlgorithmSuite = suite.Basic256Sha256

	f, err := b.Open(ctx)
	if err != nil {
	    return err
	}
	defer f.Close(context.Background())

	h, err := header.Parse(envelope)
	if err != nil {
	    return err
	}
	if err := f.ProcessIncomingHeader(ctx, h); errors.Is(err, protocol.ErrReplayDetected) {
	    // reject the message
	}

# Replay Detection

The nonce cache hard-fails with cache.ErrQuotaExceeded when full. Evicting
live nonces would let a flood of fresh nonces reopen the replay window, so
eviction of the oldest entries is available only on request
(nonce.WithEvictOldest).

# License

BSD-2-Clause License
*/
package gowssec
