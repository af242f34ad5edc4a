package main

import "github.com/glucopilot/glucopilot-agent/internal/cli"

func main() {
	cli.Execute()
}
