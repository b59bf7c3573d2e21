package main

import "github.com/songdeck/songdeck/cmd"

func main() {
	cmd.Execute()
}
