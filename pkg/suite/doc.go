// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package suite implements the WS-SecurityPolicy algorithm suites.

An algorithm suite is an immutable, named bundle of algorithm URIs and key
length constraints applied to one security exchange. The sixteen standard
suites are package-level values and can be looked up by name:

	s, ok := suite.Lookup("Basic256Sha256")

Algorithm selection is a pure function of the suite, the token and the
WS-SecureConversation version:

	alg, key, err := s.SignatureAlgorithmAndKey(tok)
	wrap := s.KeyWrapAlgorithm(tok)
	bits, err := s.SignatureKeyDerivationLength(tok, security.SecureConversationDec2005)

A derivation length of 0 means the token does not support the derivation
algorithm and the key should be used directly.

# Key length ranges

	Basic256*   symmetric 256 only
	Basic192*   symmetric 192..256
	Basic128*   symmetric 128..256
	TripleDes*  symmetric 192..256
	all         asymmetric 1024..4096

Custom suites are built with [New]. The selection functions also accept any
[AlgorithmSuite] implementation.
*/
package suite
