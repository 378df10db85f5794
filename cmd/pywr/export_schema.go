package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pywr/internal/apperror"
	"pywr/internal/schema"
)

func newExportSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-schema OUT.json",
		Short: "Emit the JSON Schema for a model document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := json.MarshalIndent(schema.JSONSchema(), "", "  ")
			if err != nil {
				return apperror.Wrap(err, apperror.CodeBuildError, "marshal JSON Schema")
			}

			if err := os.WriteFile(args[0], out, 0o644); err != nil {
				return apperror.Wrap(err, apperror.CodeBuildError, "write JSON Schema")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}
