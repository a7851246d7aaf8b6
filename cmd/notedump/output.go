package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	successText = color.New(color.FgGreen).SprintFunc()
	failureText = color.New(color.FgRed).SprintFunc()
)

func init() {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		color.NoColor = true
	}
}
