package main

import (
	"context"

	"github.com/spf13/cobra"

	"exambank/internal/codec"
	"exambank/internal/domain"
	"exambank/internal/service"
)

func (a *app) searchCmd() *cobra.Command {
	var (
		examName string
		typeID   int64
		tagIDs   []int64
		all      bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search questions by exam name, type and tags",
		Long: `Returns questions with their exam, type and tags. By default a question
matches when it satisfies any supplied criterion; --all requires every one.
Without criteria every question is returned.

Examples:
  exambank search --exam 一模
  exambank search --type 1002 --tag 2007,2008 --all --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := codec.ForFormat(format)
			if err != nil {
				return err
			}
			criteria := domain.SearchCriteria{ExamName: examName, TagIDs: tagIDs}
			if cmd.Flags().Changed("type") {
				criteria.TypeID = domain.Int64(typeID)
			}
			if all {
				criteria.Mode = domain.MatchAll
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				return svc.ExportSearch(ctx, criteria, exp, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&examName, "exam", "", "Exam name or description term")
	cmd.Flags().Int64Var(&typeID, "type", 0, "Question type id")
	cmd.Flags().Int64SliceVar(&tagIDs, "tag", nil, "Tag ids (repeat or comma separate)")
	cmd.Flags().BoolVar(&all, "all", false, "Require every criterion instead of any")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}
