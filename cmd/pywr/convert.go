package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pywr/internal/apperror"
	"pywr/internal/schema"
)

func newConvertCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "convert V1-MODEL.json",
		Short: "Best-effort convert a v1 model document to the current schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return apperror.Wrap(err, apperror.CodeSchemaError, "read v1 model document")
			}

			doc, issues, err := schema.ConvertV1(data)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeSchemaError, "convert v1 model document")
			}

			fatal := false
			for _, iss := range issues {
				fmt.Fprintln(cmd.ErrOrStderr(), iss.String())
				fatal = fatal || iss.Fatal
			}
			if fatal {
				return apperror.New(apperror.CodeSchemaError, "v1 document could not be converted")
			}

			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return apperror.Wrap(err, apperror.CodeBuildError, "marshal converted model")
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			if err := os.WriteFile(outputPath, out, 0o644); err != nil {
				return apperror.Wrap(err, apperror.CodeBuildError, "write converted model")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d diagnostic(s))\n", outputPath, len(issues))
			return nil
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "", "write the converted document here instead of stdout")
	return cmd
}
