package main

import (
	"fmt"
	"os"

	"github.com/open-cli-collective/mori/internal/cmd/root"
	"github.com/open-cli-collective/mori/internal/site"
)

func main() {
	if err := root.Execute(root.NewCmdRoot()); err != nil {
		fmt.Fprintf(os.Stderr, "mori: %v\n", err)
		os.Exit(site.ExitCode(err))
	}
}
