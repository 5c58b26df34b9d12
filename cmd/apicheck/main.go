// Package main is the entry point for the apicheck CLI.
package main

import "github.com/ofspectrum/apicheck/internal/cli"

func main() {
	cli.Execute()
}
