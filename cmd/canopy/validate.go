package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check tree documents against the node palette",
	Long:  `Parses each document and reports unknown node types, arity violations, bad parameters and broken subtree references.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, paths []string) error {
	eng, err := newEngine(cmd)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	ctx := context.Background()
	defer eng.Close(ctx)

	failed := false
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			red.Printf("✗ %s: %v\n", path, err)
			failed = true
			continue
		}
		def, err := domain.DecodeTree(data)
		if err != nil {
			red.Printf("✗ %s: %v\n", path, err)
			failed = true
			continue
		}
		if err := eng.Validate(ctx, def); err != nil {
			red.Printf("✗ %s\n", path)
			var schemaErr *domain.SchemaError
			if errors.As(err, &schemaErr) {
				for _, v := range schemaErr.Violations {
					fmt.Printf("    %s\n", v)
				}
			} else {
				fmt.Printf("    %v\n", err)
			}
			failed = true
			continue
		}
		green.Printf("✓ %s\n", path)
	}
	if failed {
		return errors.New("validation failed")
	}
	return nil
}
