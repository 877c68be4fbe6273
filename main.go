package main

import "github.com/example/cardbot/cmd"

func main() {
	cmd.Execute()
}
