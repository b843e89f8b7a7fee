package main

import "github.com/sited-io/websites/cmd/websites/commands"

func main() {
	commands.Execute()
}
