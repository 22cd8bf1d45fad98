package main

import (
	cmd "github.com/rohmanhakim/dnd-navigator/internal/cli"
)

func main() {
	cmd.Execute()
}
