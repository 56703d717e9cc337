package main

import (
	"os"

	"github.com/ziadkadry99/convobot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
