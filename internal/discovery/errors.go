// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package discovery

import "github.com/samber/oops"

// CodeAlreadyInitialized is returned by a second Initialize call.
const CodeAlreadyInitialized = "ALREADY_INITIALIZED"

// ErrAlreadyInitialized reports a repeated Initialize call.
func ErrAlreadyInitialized() error {
	return oops.Code(CodeAlreadyInitialized).
		In("discovery").
		Errorf("plugin discovery is already initialized")
}
