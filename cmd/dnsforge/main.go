package main

import (
	"github.com/mirkobrombin/dnsforge/internal/cli"
)

func main() {
	cli.Execute()
}
