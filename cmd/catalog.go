package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/example/restarate/loadgen/internal/api"
)

func newCatalogCmd() *cobra.Command {
	var openapiPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the service endpoints the tool exercises",
		Long: `Lists every endpoint of the restaurant service known to the tool. With
--openapi, also checks that each one is documented in the given OpenAPI 3
document and fails if any is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if openapiPath == "" {
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.SetStyle(table.StyleLight)
				tw.AppendHeader(table.Row{"Method", "Path"})
				for _, ep := range api.Catalog() {
					tw.AppendRow(table.Row{ep.Method, ep.Path})
				}
				tw.Render()
				return nil
			}

			if _, err := os.Stat(openapiPath); err != nil {
				return fmt.Errorf("OpenAPI file: %w", err)
			}
			cov, err := api.CheckOpenAPIFile(cmd.Context(), openapiPath)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.SetStyle(table.StyleLight)
			tw.SetTitle(fmt.Sprintf("%s %s", cov.Title, cov.Version))
			tw.AppendHeader(table.Row{"Method", "Path", "Documented"})
			for _, ep := range cov.Covered {
				tw.AppendRow(table.Row{ep.Method, ep.Path, "yes"})
			}
			for _, ep := range cov.Missing {
				tw.AppendRow(table.Row{ep.Method, ep.Path, "NO"})
			}
			tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d", len(cov.Covered), len(cov.Covered)+len(cov.Missing))})
			tw.Render()

			if !cov.Complete() {
				return fmt.Errorf("%d endpoints missing from %s", len(cov.Missing), openapiPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&openapiPath, "openapi", "o", "", "OpenAPI 3 document to check the catalog against")
	return cmd
}
