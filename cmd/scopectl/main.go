// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Command scopectl exercises cancellable and timeout scopes.
package main

import "vawter.tech/scope/internal/cli"

func main() {
	cli.Execute()
}
