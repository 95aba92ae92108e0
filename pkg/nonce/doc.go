// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package nonce provides replay-detection caches for WS-Security nonces.

A nonce cache remembers every nonce it accepts for a fixed caching time span,
normally the replay window plus twice the maximum clock skew. Submitting a
nonce that is still remembered reports a replay:

	nc, err := nonce.NewInMemory(15*time.Minute, 900000)
	if err != nil {
	    return err
	}

	ok, err := nc.TryAddNonce(ctx, n)
	switch {
	case err != nil:
	    // quota exceeded or backend failure
	case !ok:
	    // replay: reject the message
	}

A false result is a protocol-fatal replay, never a benign duplicate.

# Backends

  - [InMemory]: built on cache.TimeBoundedCache with access-based purging.
    When full it fails with cache.ErrQuotaExceeded unless [WithEvictOldest]
    is given. Dropping live nonces reopens the replay window, so eviction is
    opt-in.
  - [BadgerStore]: persistent store on Badger v4 using per-entry TTLs, so
    accepted nonces survive a restart.

A shared MongoDB-backed cache for clustered deployments lives in
internal/storage/mongodb.
*/
package nonce
