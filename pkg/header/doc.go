// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package header reads the parts of a WS-Security header that replay detection
and key derivation depend on.

[Parse] locates the wsse:Security header of a SOAP 1.1 or 1.2 envelope and
extracts the timestamp, signature values, UsernameToken nonces and
derived-key tokens of both WS-SecureConversation versions:

	h, err := header.Parse(envelope)
	if errors.Is(err, header.ErrNoSecurityHeader) {
	    // unsecured message
	}

Elements are matched by namespace URI and local name, so any prefix works.
Signatures are not verified and nothing is canonicalized; this is a reader
for the replay path, not a token serializer.
*/
package header
