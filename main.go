package main

import "github.com/kozaktomas/face-resolver/cmd"

func main() {
	cmd.Execute()
}
