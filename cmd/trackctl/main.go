package main

import (
	"fmt"
	"os"

	"github.com/Wenjie0329/email-pitch-tool/internal/cli"
	"github.com/Wenjie0329/email-pitch-tool/internal/config"
)

func main() {
	defaults, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	os.Exit(cli.Execute(*defaults, os.Args[1:], os.Stdout, os.Stderr))
}
