// Package cli implements the s1 command line: the gateway server plus
// local tools that run Select and listings against the configured backend.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joocer/s1/internal/config"
	"github.com/joocer/s1/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if kind := errorKind(err); kind != "" {
				errObj["kind"] = kind
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		output     string
	)

	rootCmd := &cobra.Command{
		Use:           "s1",
		Short:         "Read-only S3 gateway with S3 Select over Parquet",
		Long:          "s1 serves objects from GCS, S3, Azure or a local directory over the S3 API and answers S3 Select queries on Parquet files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			// Values from the file only fill variables the environment leaves unset.
			if configFile != "" {
				if err := config.LoadFile(configFile); err != nil {
					return err
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format for listings (table, json)")

	// Bare "s1" runs the gateway so container images need no arguments.
	serveCmd := newServeCmd()
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newSelectCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}

// errorKind names the domain error class of err for machine-readable output.
func errorKind(err error) string {
	var (
		notFound   *domain.NotFoundError
		fetch      *domain.FetchError
		parse      *domain.ParseError
		format     *domain.FormatError
		schema     *domain.SchemaError
		eval       *domain.EvaluationError
		validation *domain.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &fetch):
		return "fetch"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &format):
		return "format"
	case errors.As(err, &schema):
		return "schema"
	case errors.As(err, &eval):
		return "evaluation"
	case errors.As(err, &validation):
		return "validation"
	}
	return ""
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
