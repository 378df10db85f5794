package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pywr/internal/apperror"
	"pywr/internal/schema"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate MODEL.json",
		Short: "Check a model document builds and satisfies every network invariant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			model, _, err := schema.Build(doc)
			if err != nil {
				return err
			}

			errs := model.Validate()
			if len(errs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok: model is valid")
				return nil
			}

			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), "-", e)
			}
			return apperror.New(apperror.CodeSchemaError, fmt.Sprintf("model failed validation with %d error(s)", len(errs)))
		},
	}
}
