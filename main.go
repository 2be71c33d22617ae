package main

import "github.com/retriever-io/retriever/internal/cli"

func main() {
	cli.Execute()
}
