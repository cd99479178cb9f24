package main

import "github.com/rustyeddy/straddle/internal/cli"

func main() {
	cli.Execute()
}
