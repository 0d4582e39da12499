package main

import "github.com/devicelab-dev/actionrunner/pkg/cli"

func main() {
	cli.Execute()
}
