// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package sctcache caches WS-SecureConversation security context tokens.

Tokens are keyed by context ID and key generation and expire at their
ValidTo plus the configured clock skew. The cache purges on a timer and
zeroes the key material of every token it drops, whether by expiry,
replacement, removal or eviction.

	c, err := sctcache.New(1000, sctcache.WithClockSkew(5*time.Minute))
	if err := c.AddContext(sct); err != nil {
	    return err
	}
	sct, ok := c.GetContext(contextID, "")

A full cache fails with cache.ErrQuotaExceeded unless
[WithReplaceOldestEntries] is set, which drops the 60% of entries closest to
expiry.
*/
package sctcache
