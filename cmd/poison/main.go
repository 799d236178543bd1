// Package main is the entry point for the poison CLI.
package main

import "gooze.dev/pkg/poison/cmd"

func main() {
	cmd.Execute()
}
