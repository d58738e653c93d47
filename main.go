package main

import (
	"github.com/wabridge/wabridge/cmd"
)

func main() {
	cmd.Execute()
}
