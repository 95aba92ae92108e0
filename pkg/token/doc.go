// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package token models the security tokens and keys consumed by algorithm
selection.

A [SecurityToken] exposes an ordered list of [SecurityKey] values. Algorithm
selection walks that list and asks each key whether it supports an algorithm
URI, so the order of keys is significant:

	tok, err := token.NewSymmetricToken("", secret, time.Now(), time.Now().Add(time.Hour))
	sig, key, err := suite.Basic256.SignatureAlgorithmAndKey(tok)

Two key types are provided: [SymmetricKey] for shared secrets and [RSAKey]
for RSA key pairs or public keys.
*/
package token
