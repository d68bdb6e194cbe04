package main

import (
	"os"

	recoverctlcmd "github.com/telekom/account-recovery/pkg/recoverctl/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := recoverctlcmd.NewRootCommand(recoverctlcmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
