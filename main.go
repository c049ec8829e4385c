package main

import "finbrief/internal/cli"

func main() {
	cli.Execute()
}
