// The icebox command inspects guest memory snapshots: it translates
// virtual addresses, reads pages, and serves an inspection API.
package main

import "github.com/Skyrano/icebox/icebox/cmd"

func main() {
	cmd.Execute()
}
