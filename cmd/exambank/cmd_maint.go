package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"exambank/internal/config"
	"exambank/internal/service"
	"exambank/internal/watcher"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report broken references between stores",
		Long: `Reports relations whose question or tag is gone, questions pointing at a
missing type or exam, tags of a missing type, and tags whose type differs
from the type of the question they are attached to. Exits non-zero when
anything other than that drift is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				report, err := svc.Check(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.Clean() {
					return errors.New("consistency problems found; run 'exambank repair'")
				}
				return nil
			})
		},
	}
}

func (a *app) repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Fix the problems 'check' reports, except tag/type drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				res, err := svc.Repair(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts per store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				s, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "exams\t%d\n", s.Exams)
				fmt.Fprintf(w, "questions\t%d\n", s.Questions)
				fmt.Fprintf(w, "question_types\t%d\n", s.QuestionTypes)
				fmt.Fprintf(w, "question_tags\t%d\n", s.QuestionTags)
				fmt.Fprintf(w, "question_tag_relations\t%d\n", s.Relations)
				return w.Flush()
			})
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	var reseed, yes bool
	cmd := &cobra.Command{
		Use:   "reset --yes [--reseed]",
		Short: "Delete every row of every store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.ExamService) error {
				if !reseed {
					return svc.Reset(ctx, nil)
				}
				cat, err := a.loadCatalog()
				if err != nil {
					return err
				}
				return svc.Reset(ctx, cat)
			})
		},
	}
	cmd.Flags().BoolVar(&reseed, "reseed", false, "Restore the seed catalog after clearing")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Ingest analysis files dropped into a directory",
		Long: `Every .json, .yaml or .yml file that appears in DIR is ingested as an exam
named after the file. Ingested files move to DIR/processed, rejected ones to
DIR/failed next to a .error note. Files already in DIR are handled first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, closeFn, err := a.open(ctx, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			err = watcher.NewInbox(args[0], svc, a.logger.Named("inbox")).
				WithDebounce(debounce).
				Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a file is read")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.FindConfigPath()
			}
			if path == "" {
				path = "(defaults)"
			}
			a.logger.Debug("effective config", zap.String("source", path))
			fmt.Fprintf(cmd.OutOrStdout(), "source: %s\n%s\n", path, a.cfg.Summary())
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the effective configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := a.cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
