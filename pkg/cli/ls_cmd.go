package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joocer/s1/internal/service/object"
)

type lsEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero"`
	ETag         string    `json:"etag,omitempty"`
	Prefix       bool      `json:"prefix,omitempty"`
}

func newLsCmd() *cobra.Command {
	var (
		delimiter string
		pageSize  int
		human     bool
	)

	cmd := &cobra.Command{
		Use:   "ls BUCKET [PREFIX]",
		Short: "List objects in a bucket",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pageSize < 1 || pageSize > object.DefaultMaxKeys {
				return fmt.Errorf("--page-size must be between 1 and %d", object.DefaultMaxKeys)
			}
			params := object.ListParams{Delimiter: delimiter, MaxKeys: pageSize}
			if len(args) == 2 {
				params.Prefix = args[1]
			}

			a, err := newToolApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			var entries []lsEntry
			for {
				page, err := a.Services.Objects.List(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				for _, p := range page.CommonPrefixes {
					entries = append(entries, lsEntry{Key: p, Prefix: true})
				}
				for _, o := range page.Contents {
					entries = append(entries, lsEntry{Key: o.Key, Size: o.Size, LastModified: o.LastModified, ETag: o.ETag})
				}
				if !page.IsTruncated {
					break
				}
				params.ContinuationToken = page.NextMarker
			}

			if getOutputFormat(cmd) == "json" {
				if entries == nil {
					entries = []lsEntry{}
				}
				return printJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				if e.Prefix {
					rows = append(rows, []string{"PRE", "", e.Key})
					continue
				}
				size := strconv.FormatInt(e.Size, 10)
				if human {
					size = humanize.Bytes(uint64(e.Size)) //nolint:gosec // sizes are non-negative
				}
				rows = append(rows, []string{e.LastModified.UTC().Format(time.RFC3339), size, e.Key})
			}
			return printTable(cmd.OutOrStdout(), []string{"modified", "size", "key"}, rows)
		},
	}

	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "Roll keys up to this delimiter, e.g. /")
	cmd.Flags().IntVar(&pageSize, "page-size", object.DefaultMaxKeys, "Keys fetched per listing page")
	cmd.Flags().BoolVarP(&human, "human-readable", "H", false, "Print sizes in human-readable units")
	return cmd
}
