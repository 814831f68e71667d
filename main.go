// SPDX-License-Identifier: MIT

// reposync bulk-synchronizes a GitHub account's repositories to local
// disk and applies per-repository bootstrap steps.
package main

import "github.com/skaphos/reposync/cmd/reposync"

// execute is overridable in tests.
var execute = reposync.Execute

func main() {
	execute()
}
