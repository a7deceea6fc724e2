package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/output"
	"github.com/joocer/s1/internal/service/query"
)

func newSelectCmd() *cobra.Command {
	var (
		sql    string
		format string
		schema bool
	)

	cmd := &cobra.Command{
		Use:   "select BUCKET/KEY",
		Short: "Run an S3 Select query against a Parquet object",
		Long: "Run an S3 Select query against a Parquet object in the configured backend and " +
			"print the rows as CSV or NDJSON. With --schema, print the column names and types instead.",
		Example: `  s1 select bkt/sales.parquet --sql "SELECT region, total FROM S3Object WHERE total > 100"
  s1 select bkt/sales.parquet --format json --sql "SELECT * FROM S3Object s WHERE s.region = 'EU'"
  s1 select bkt/sales.parquet --schema`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := domain.ParseObjectKey(args[0])
			if err != nil {
				return err
			}
			if !schema && strings.TrimSpace(sql) == "" {
				return fmt.Errorf("--sql is required unless --schema is set")
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := newToolApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if schema {
				s, err := a.Services.Select.Schema(cmd.Context(), key)
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					fields := make([]map[string]string, len(s.Fields))
					for i, fd := range s.Fields {
						fields[i] = map[string]string{"name": fd.Name, "type": fd.Type.String()}
					}
					return printJSON(cmd.OutOrStdout(), fields)
				}
				rows := make([][]string, len(s.Fields))
				for i, fd := range s.Fields {
					rows[i] = []string{fd.Name, fd.Type.String()}
				}
				return printTable(cmd.OutOrStdout(), []string{"column", "type"}, rows)
			}

			sel, err := a.Services.Select.Prepare(cmd.Context(), query.SelectRequest{
				Key:        key,
				Expression: sql,
				Format:     f,
			})
			if err != nil {
				return err
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			if _, err := sel.Stream(cmd.Context(), w); err != nil {
				_ = w.Flush()
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&sql, "sql", "e", "", "Select expression")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Row format (csv, json)")
	cmd.Flags().BoolVar(&schema, "schema", false, "Print the object's columns instead of running a query")
	return cmd
}
