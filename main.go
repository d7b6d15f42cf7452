// main.go - Einstiegspunkt der nnscope CLI
package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nnscope/nnscope/cmd"
)

func main() {
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}
