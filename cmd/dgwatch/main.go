package main

import "github.com/luckyjian/dgwatch/internal/cli"

func main() {
	cli.Execute()
}
