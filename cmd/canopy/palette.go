package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/pkg/registry"
)

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "List the builtin node types and their parameters",
	Run: func(cmd *cobra.Command, args []string) {
		printPalette()
	},
}

func init() {
	rootCmd.AddCommand(paletteCmd)
}

func printPalette() {
	for _, schema := range registry.Builtins().Schemas() {
		cyan.Printf("%s", schema.Name)
		fmt.Printf("  (%s, children: %s)\n", schema.Category, schema.Arity)
		if schema.Description != "" {
			fmt.Printf("    %s\n", schema.Description)
		}
		for _, p := range schema.Params {
			line := fmt.Sprintf("    %s %s", p.Name, p.Type)
			if p.Required {
				line += "  (required)"
			} else if p.Default != nil {
				line += fmt.Sprintf("  (default %v)", p.Default)
			}
			fmt.Println(line)
		}
	}
}
