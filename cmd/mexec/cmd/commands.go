package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/mExec/internal/engine"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the script commands",
	Run: func(cmd *cobra.Command, args []string) {
		reg := engine.Commands()
		for _, name := range reg.SortedNames() {
			d := reg.Descriptor(reg.Lookup(name))
			if d.AltName != "" {
				fmt.Printf("%-18s (%s)\n", name, d.AltName)
			} else {
				fmt.Println(name)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}
