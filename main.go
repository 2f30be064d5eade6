package main

import (
	"fmt"
	"os"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCode(err))
	}
}
