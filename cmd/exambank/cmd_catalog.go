package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"exambank/internal/domain"
	"exambank/internal/service"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) catalogCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show every question type with its tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				entries, err := svc.Catalog(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), entries)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, t := range entries {
					fmt.Fprintf(w, "%d\t%s\t\n", t.ID, t.Content)
					for _, tag := range t.Tags {
						fmt.Fprintf(w, "  %d\t%s\t\n", tag.ID, tag.Content)
					}
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) typesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage question types",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List question types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				types, err := svc.ListTypes(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCONTENT\t")
				for _, t := range types {
					fmt.Fprintf(w, "%d\t%s\t\n", t.ID, t.Content)
				}
				return w.Flush()
			})
		},
	}

	add := &cobra.Command{
		Use:   "add CONTENT",
		Short: "Add a question type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				id, err := svc.CreateType(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID CONTENT",
		Short: "Rename a question type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				return svc.UpdateType(ctx, id, args[1])
			})
		},
	}

	cmd.AddCommand(list, add, rename)
	return cmd
}

func (a *app) tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage question tags",
	}

	var listType int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List tags, optionally of one type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var typeID *int64
			if cmd.Flags().Changed("type") {
				typeID = domain.Int64(listType)
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				tags, err := svc.ListTags(ctx, typeID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tCONTENT\t")
				for _, t := range tags {
					fmt.Fprintf(w, "%d\t%d\t%s\t\n", t.ID, t.TypeID, t.Content)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().Int64Var(&listType, "type", 0, "Only tags of this type")

	var addType int64
	add := &cobra.Command{
		Use:   "add CONTENT --type ID",
		Short: "Add a tag under a question type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				id, err := svc.CreateTag(ctx, args[0], addType)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&addType, "type", 0, "Owning question type id (required)")
	add.MarkFlagRequired("type")

	var (
		newContent string
		newType    int64
	)
	update := &cobra.Command{
		Use:   "update ID [--content TEXT] [--type ID]",
		Short: "Change a tag's content or owning type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch domain.TagPatch
			if cmd.Flags().Changed("content") {
				patch.Content = domain.String(newContent)
			}
			if cmd.Flags().Changed("type") {
				patch.TypeID = domain.Int64(newType)
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				return svc.UpdateTag(ctx, id, patch)
			})
		},
	}
	update.Flags().StringVar(&newContent, "content", "", "New content")
	update.Flags().Int64Var(&newType, "type", 0, "New owning type id")

	cmd.AddCommand(list, add, update)
	return cmd
}
