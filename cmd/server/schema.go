package main

import (
	"architect/internal/service/specification"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema requested from the model during synthesis",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := specification.OutputSchema()
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, schema, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return nil
	},
}
