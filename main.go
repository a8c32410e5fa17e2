package main

import (
	"github.com/TWRT/sprint-manager/cmd"
)

// version will be set at build time
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
