package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"commitline/internal/domain"
	"commitline/internal/engine"
	clerrors "commitline/internal/errors"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:     "task",
		Aliases: []string{"t"},
		Short:   "Manage tasks",
		Long:    "Tasks are the steps toward a commitment. They go pending -> in_progress -> completed, or skipped. The stakeholder notification task created by 'commitment at-risk' stays pinned first and needs --confirm to skip or remove.",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskStartCmd())
	task.AddCommand(taskDoneCmd())
	task.AddCommand(taskSkipCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskRemoveCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var estimate float64
	cmd := &cobra.Command{
		Use:   "add <commitment-id>",
		Short: "Add a task to a commitment",
		Args:  exactArgs("<commitment-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CommitmentID = args[0]
			if cmd.Flags().Changed("estimate") {
				opts.EstimatedHours = &estimate
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "free-form scope notes")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated hours")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <commitment-id>",
		Short: "List a commitment's tasks in order",
		Args:  exactArgs("<commitment-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
}

func printTasks(tasks []domain.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"#", "ID", "Title", "Status", "Estimate", "Actual"})
	for _, t := range tasks {
		title := t.Title
		if t.IsNotificationTask {
			title = "[notify] " + title
		}
		estimate, actual := "", ""
		if t.EstimatedHours != nil {
			estimate = fmt.Sprintf("%.1fh", *t.EstimatedHours)
		}
		if t.ActualHoursCategory != nil {
			actual = string(*t.ActualHoursCategory)
		}
		tw.AppendRow(table.Row{t.Position, t.ID, title, t.Status, estimate, actual})
	}
	tw.Render()
}

func printTask(t domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(t)
	}
	fmt.Printf("%s: %s [%s]\n", t.ID, t.Title, t.Status)
	return nil
}

func taskStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start a task",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.StartTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskDoneCmd() *cobra.Command {
	var actual string
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task",
		Long:  "Complete a task. --actual records how long it really took against the estimate: much_shorter, shorter, on_target, longer or much_longer.",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts engine.CompleteTaskOptions
			if actual != "" {
				c := domain.HoursCategory(actual)
				opts.ActualHours = &c
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CompleteTask(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&actual, "actual", "", "actual effort relative to the estimate")
	return cmd
}

func taskSkipCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "skip <id>",
		Short: "Skip a task",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SkipTask(ctx, args[0], confirm)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm skipping a stakeholder notification task")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Reorder a task",
		Args:  exactArgs("<id>", "<position>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: position must be a number", clerrors.ErrValidation)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.MoveTask(ctx, args[0], pos)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
}

func taskRemoveCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a task (its history is kept)",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RemoveTask(ctx, args[0], confirm); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"removed": args[0]})
				}
				fmt.Printf("removed %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm removing a stakeholder notification task")
	return cmd
}
