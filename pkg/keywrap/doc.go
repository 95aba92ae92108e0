// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package keywrap wraps and unwraps ephemeral keys with the algorithm an
algorithm suite selects for a token.

	alg, wrapped, err := keywrap.Wrap(suite.Basic256, recipient, sessionKey)
	key, err := keywrap.Unwrap(alg, recipient, wrapped)

Symmetric tokens use AES Key Wrap (RFC 3394). RSA tokens use RSA-OAEP with
SHA-1 and MGF1, or RSA PKCS#1 v1.5 for the Rsa15 suites. TripleDES key wrap
(RFC 3217) is not implemented.
*/
package keywrap
