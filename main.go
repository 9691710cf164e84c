package main

import "github.com/dyike/CortexAdvisor/internal/cli"

func main() {
	cli.Run()
}
