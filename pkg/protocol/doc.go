// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package protocol builds the security protocol factory that message
processing runs against.

A [Builder] collects the configuration: algorithm suites, replay detection,
clock skew, the nonce cache and the supporting-token authenticators. Open
validates it, merges supporting-token specifications per action, opens the
authenticators and returns an immutable [Factory]:

	b := protocol.NewBuilder()
	b.OutgoingAlgorithmSuite = suite.Basic256Sha256
	b.ScopedSupportingTokenAuthenticators = map[string][]protocol.SupportingTokenSpec{
	    "urn:example:Submit": {{Authenticator: samlAuth, Mode: protocol.Endorsing}},
	}

	f, err := b.Open(ctx)
	if err != nil {
	    return err
	}
	defer f.Close(context.Background())

On receive, [Factory.ProcessIncomingHeader] verifies the timestamp, checks
derived-key tokens against the incoming suite and records signature values
and UsernameToken nonces in the nonce cache. A replay yields
[ErrReplayDetected]. On send, [Factory.OutgoingKeys] picks the signature
algorithm and key, the key wrap algorithm and the derived keys for a base
token.

Configuration errors are reported by Open, never on first use.
*/
package protocol
