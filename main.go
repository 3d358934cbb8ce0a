package main

import (
	"EchoQ/cmd"
)

func main() {
	cmd.Execute()
}
