package main

import "gooze.dev/pkg/poison"

func main() {
	poison.MustCheck("Exit")
}
