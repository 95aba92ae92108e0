// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

// Package security holds the algorithm URIs, namespaces and
// WS-SecureConversation versions shared by the suite, token, derivation and
// header packages.
package security
