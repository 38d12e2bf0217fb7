// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/monorun/cmd/monorun"

func main() {
	cmd.Execute()
}
