package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/ytakahashi/todo-api/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Error("todo-api failed", "err", err)
		os.Exit(1)
	}
}
