package main

import "github.com/vietddude/tonkit/internal/cli"

func main() {
	cli.Execute()
}
