package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"exambank/internal/codec"
	"exambank/internal/service"
)

func (a *app) ingestCmd() *cobra.Command {
	var examName, description, format string
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest an analysed exam",
		Long: `Reads an analysis payload ({"questions": [{content, type_id, tag_ids}]})
and stores it as a new exam in one transaction. Nothing is written when any
question fails validation.

The format is taken from --format, else from the file extension (.yaml/.yml
or JSON). Use "-" to read standard input. JSON may be wrapped in prose or a
code fence; the outermost object is used.

Example:
  exambank ingest analysis.json --exam "2024 高三一模" --description "语文"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imp, err := importerFor(args[0], format)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				res, err := svc.IngestFrom(ctx, examName, description, r, imp)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&examName, "exam", "", "Exam name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Exam description")
	cmd.Flags().StringVar(&format, "format", "", "Payload format: json or yaml")
	cmd.MarkFlagRequired("exam")
	return cmd
}

func importerFor(path, format string) (codec.Importer, error) {
	if format != "" {
		c, err := codec.ForFormat(format)
		if err != nil {
			return nil, fmt.Errorf("--format: %w", err)
		}
		return c, nil
	}
	return codec.ForPath(path), nil
}
