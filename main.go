package main

import (
	"os"

	"github.com/nextlevelbuilder/idearium/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
