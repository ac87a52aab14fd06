package main

import "github.com/miradorstack/mirador-thermal/internal/cli"

func main() {
	cli.Execute()
}
