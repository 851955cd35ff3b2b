// sessionctl is the operator CLI for listing, revoking and sweeping sessions.
package main

import "session-lifecycle-manager/cmd/sessionctl/cmd"

func main() {
	cmd.Execute()
}
