package main

import "go.anonvote.io/avote/cmd/avotecli/commands"

func main() {
	commands.Execute()
}
