package main

import "github.com/teleportd/teleport/cmd/teleportctl/cmd"

func main() {
	cmd.Execute()
}
