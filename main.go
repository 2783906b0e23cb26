package main

import (
	"os"

	"github.com/smazurov/cmdutils/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
