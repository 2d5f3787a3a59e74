package main

import "vidrelay/cmd"

func main() {
	cmd.Execute()
}
