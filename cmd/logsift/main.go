package main

import "github.com/livp123/logsift/cmd/logsift/commands"

func main() {
	commands.Execute()
}
