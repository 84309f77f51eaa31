// Package main provides the qadesk server and administration CLI.
package main

import "github.com/mesh-intelligence/qadesk/internal/cli"

func main() {
	cli.Execute()
}
