// Command beacon runs the proxy as a standalone binary.
package main

import "go.beaconmc.dev/beacon/cmd/beacon/cli"

func main() {
	cli.Execute()
}
