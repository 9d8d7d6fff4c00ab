// Package main is the entry point for the testbench CLI.
package main

import "gooze.dev/pkg/testbench/cmd"

func main() {
	cmd.Execute()
}
