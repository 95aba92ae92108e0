// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package derivedkey implements WS-SecureConversation key derivation.

Keys are derived from the secret of a base token with P_SHA1 (RFC 2246,
section 5) keyed by a label and a nonce. HKDF-SHA256 is available for
profiles that use it.

# Derived-key tokens

[NewToken] derives a key of the requested length from a base token:

	dk, err := derivedkey.NewToken(base, security.Psha1KeyDerivationDec2005, 192)

[ForSignature] and [ForEncryption] take the length from an algorithm suite
and skip derivation when the base token cannot derive:

	tok, derived, err := derivedkey.ForSignature(suite.Basic256, base, security.SecureConversationDec2005)

# Caching

A receiver sees the same derived-key token on many messages of a
conversation. [Cache] keeps recently derived keys in an LRU keyed by the base
token and every derivation parameter, so repeated headers are not
recomputed. Pass it to NewToken with [WithCache].
*/
package derivedkey
