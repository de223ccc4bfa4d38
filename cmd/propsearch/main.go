package main

import "github.com/stwalsh4118/propsearch/internal/cli"

func main() {
	cli.Execute()
}
