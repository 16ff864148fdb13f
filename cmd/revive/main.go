package main

import "github.com/charliek/revive/internal/cli"

func main() {
	cli.Execute()
}
