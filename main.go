package main

import (
	"github.com/pimctl/pimctl/cmd"
)

func main() {
	cmd.Execute()
}
