package main

import "index-early-alerts/internal/cli"

func main() {
	cli.Execute()
}
