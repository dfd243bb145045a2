package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"exambank/internal/domain"
	"exambank/internal/service"
)

func (a *app) examsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exams",
		Short: "Manage exams",
	}

	var keyword string
	list := &cobra.Command{
		Use:   "list [--search TERM]",
		Short: "List exams, optionally matching a name or description term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				var (
					exams []domain.Exam
					err   error
				)
				if cmd.Flags().Changed("search") {
					exams, err = svc.SearchExams(ctx, keyword)
				} else {
					exams, err = svc.ListExams(ctx)
				}
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED\t")
				for _, e := range exams {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", e.ID, e.Name, e.Description, e.CreatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&keyword, "search", "", "Name or description term")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show an exam with its questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				exam, err := svc.GetExam(ctx, id)
				if err != nil {
					return err
				}
				questions, err := svc.ExamQuestions(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), struct {
					*domain.Exam
					Questions []domain.Question `json:"questions"`
				}{exam, questions})
			})
		},
	}

	var description string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an empty exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				id, err := svc.CreateExam(ctx, domain.ExamInput{Name: args[0], Description: description})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "Exam description")

	var newName, newDescription string
	update := &cobra.Command{
		Use:   "update ID [--name NAME] [--description TEXT]",
		Short: "Change an exam's name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch domain.ExamPatch
			if cmd.Flags().Changed("name") {
				patch.Name = domain.String(newName)
			}
			if cmd.Flags().Changed("description") {
				patch.Description = domain.String(newDescription)
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				return svc.UpdateExam(ctx, id, patch)
			})
		},
	}
	update.Flags().StringVar(&newName, "name", "", "New name")
	update.Flags().StringVar(&newDescription, "description", "", "New description")

	cmd.AddCommand(list, show, add, update)
	return cmd
}

func (a *app) questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage questions",
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a question with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				q, err := svc.GetQuestion(ctx, id)
				if err != nil {
					return err
				}
				tags, err := svc.QuestionTags(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), struct {
					*domain.Question
					Tags []domain.QuestionTag `json:"tags"`
				}{q, tags})
			})
		},
	}

	var (
		examID int64
		typeID int64
		answer string
	)
	add := &cobra.Command{
		Use:   "add CONTENT --exam ID [--type ID] [--answer TEXT]",
		Short: "Add a question to an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := domain.QuestionInput{Content: args[0], Answer: answer, ExamID: examID}
			if cmd.Flags().Changed("type") {
				in.TypeID = domain.Int64(typeID)
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				id, err := svc.CreateQuestion(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&examID, "exam", 0, "Exam id (required)")
	add.Flags().Int64Var(&typeID, "type", 0, "Question type id")
	add.Flags().StringVar(&answer, "answer", "", "Reference answer")
	add.MarkFlagRequired("exam")

	var (
		newContent, newAnswer string
		newType, newExam      int64
		clearType             bool
	)
	update := &cobra.Command{
		Use:   "update ID [flags]",
		Short: "Change a question's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch := domain.QuestionPatch{ClearTypeID: clearType}
			if cmd.Flags().Changed("content") {
				patch.Content = domain.String(newContent)
			}
			if cmd.Flags().Changed("answer") {
				patch.Answer = domain.String(newAnswer)
			}
			if cmd.Flags().Changed("type") {
				patch.TypeID = domain.Int64(newType)
			}
			if cmd.Flags().Changed("exam") {
				patch.ExamID = domain.Int64(newExam)
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				return svc.UpdateQuestion(ctx, id, patch)
			})
		},
	}
	update.Flags().StringVar(&newContent, "content", "", "New content")
	update.Flags().StringVar(&newAnswer, "answer", "", "New answer")
	update.Flags().Int64Var(&newType, "type", 0, "New type id")
	update.Flags().BoolVar(&clearType, "clear-type", false, "Remove the question's type")
	update.Flags().Int64Var(&newExam, "exam", 0, "Move to another exam")

	cmd.AddCommand(show, add, update)
	return cmd
}

func (a *app) attachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach QUESTION TAG...",
		Short: "Tag a question; already attached tags are left as they are",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				for _, tagID := range ids[1:] {
					relID, err := svc.Attach(ctx, ids[0], tagID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "tag %d attached (relation %d)\n", tagID, relID)
				}
				return nil
			})
		},
	}
}

func (a *app) detachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detach QUESTION TAG...",
		Short: "Remove tags from a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				for _, tagID := range ids[1:] {
					removed, err := svc.Detach(ctx, ids[0], tagID)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(cmd.OutOrStdout(), "tag %d detached\n", tagID)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "tag %d was not attached\n", tagID)
					}
				}
				return nil
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete exam|question|type|tag ID",
		Short: "Delete an entity together with everything that depends on it",
		Long: `Deletes run as one transaction and print what they removed:
  exam      its questions and their tag relations
  question  its tag relations
  type      its tags and their relations; its questions lose their type
  tag       its relations`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"exam", "question", "type", "tag"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				var (
					res any
					err error
				)
				switch args[0] {
				case "exam":
					res, err = svc.DeleteExam(ctx, id)
				case "question":
					res, err = svc.DeleteQuestion(ctx, id)
				case "type":
					res, err = svc.DeleteType(ctx, id)
				case "tag":
					res, err = svc.DeleteTag(ctx, id)
				default:
					return fmt.Errorf("unknown entity %q (want exam, question, type or tag)", args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
