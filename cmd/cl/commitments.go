package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"commitline/internal/domain"
	"commitline/internal/engine"
	clerrors "commitline/internal/errors"
	"commitline/internal/repo"
)

func stakeholderCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stakeholder", Short: "Manage stakeholders"}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a stakeholder",
		Args:  exactArgs("<name>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateStakeholder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stakeholders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListStakeholders(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func commitmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commitment",
		Aliases: []string{"c"},
		Short:   "Manage commitments",
		Long:    "Commitments move pending -> in_progress -> completed. Mark one at risk as soon as the date looks doubtful: that opens a cleanup plan and a pinned task to notify the stakeholder.",
	}
	cmd.AddCommand(commitmentAddCmd())
	cmd.AddCommand(commitmentListCmd())
	cmd.AddCommand(commitmentShowCmd())
	cmd.AddCommand(commitmentStartCmd())
	cmd.AddCommand(commitmentAtRiskCmd())
	cmd.AddCommand(commitmentCompleteCmd())
	cmd.AddCommand(commitmentAbandonCmd())
	cmd.AddCommand(commitmentRecoverCmd())
	cmd.AddCommand(commitmentReopenCmd())
	return cmd
}

func commitmentAddCmd() *cobra.Command {
	var opts engine.CommitmentCreateOptions
	var due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.Parse("2006-01-02", due)
			if err != nil {
				return fmt.Errorf("%w: --due must be YYYY-MM-DD", clerrors.ErrValidation)
			}
			opts.DueDate = d
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCommitment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Deliverable, "deliverable", "", "what was promised")
	cmd.Flags().StringVar(&opts.StakeholderID, "stakeholder", "", "stakeholder id")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.DueTime, "due-time", "", "optional due time (HH:MM, UTC)")
	_ = cmd.MarkFlagRequired("deliverable")
	_ = cmd.MarkFlagRequired("stakeholder")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func commitmentListCmd() *cobra.Command {
	var status string
	var f repo.CommitmentFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List commitments",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.CommitmentStatus(status)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListCommitments(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Deliverable", "Stakeholder", "Due", "Status", "On time"})
				for _, c := range items {
					onTime := ""
					if c.CompletedOnTime != nil {
						onTime = fmt.Sprint(*c.CompletedOnTime)
					}
					due := c.DueDate.Format("2006-01-02")
					if c.DueTime != nil {
						due += " " + *c.DueTime
					}
					tw.AppendRow(table.Row{c.ID, c.Deliverable, c.StakeholderName, due, c.Status, onTime})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.StakeholderID, "stakeholder", "", "stakeholder id filter")
	return cmd
}

func commitmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a commitment with its tasks and cleanup plan",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CommitmentDetail(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				c := d.Commitment
				fmt.Printf("Commitment: %s\n", c.Deliverable)
				fmt.Printf("Stakeholder: %s\n", c.StakeholderName)
				fmt.Printf("Due: %s\n", c.DueAt().Format("2006-01-02 15:04 MST"))
				fmt.Printf("Status: %s\n", c.Status)
				if c.MarkedAtRiskAt != nil {
					fmt.Printf("Marked at risk: %s\n", formatTime(c.MarkedAtRiskAt))
				}
				if c.CompletedAt != nil {
					fmt.Printf("Completed: %s (on time: %v, recovered: %v)\n", formatTime(c.CompletedAt), *c.CompletedOnTime, c.AtRiskRecovered)
				}
				if d.Plan != nil {
					fmt.Printf("Cleanup plan: %s\n", d.Plan.Status)
					if d.Plan.SkippedReason != nil {
						fmt.Printf("  skipped: %s\n", *d.Plan.SkippedReason)
					}
				}
				printTasks(d.Tasks)
				return nil
			})
		},
	}
}

// commitmentTransitionCmd builds the one-argument status commands.
func commitmentTransitionCmd(use, short string, fn func(context.Context, engine.Engine, string) (domain.Commitment, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := fn(ctx, e, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("%s: %s\n", c.ID, c.Status)
				return nil
			})
		},
	}
}

func commitmentStartCmd() *cobra.Command {
	return commitmentTransitionCmd("start", "Start working on a pending commitment", func(ctx context.Context, e engine.Engine, id string) (domain.Commitment, error) {
		return e.StartCommitment(ctx, id)
	})
}

func commitmentCompleteCmd() *cobra.Command {
	return commitmentTransitionCmd("complete", "Mark a commitment delivered", func(ctx context.Context, e engine.Engine, id string) (domain.Commitment, error) {
		return e.Complete(ctx, id)
	})
}

func commitmentRecoverCmd() *cobra.Command {
	return commitmentTransitionCmd("recover", "Return an at-risk commitment to in_progress", func(ctx context.Context, e engine.Engine, id string) (domain.Commitment, error) {
		return e.Recover(ctx, id)
	})
}

func commitmentReopenCmd() *cobra.Command {
	return commitmentTransitionCmd("reopen", "Reopen a completed commitment", func(ctx context.Context, e engine.Engine, id string) (domain.Commitment, error) {
		return e.Reopen(ctx, id)
	})
}

func commitmentAtRiskCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "at-risk <id>",
		Short: "Flag a commitment at risk and open a cleanup plan",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, plan, err := e.MarkAtRisk(ctx, args[0], reason)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"commitment": c, "cleanup_plan": plan})
				}
				fmt.Printf("%s: %s\n", c.ID, c.Status)
				fmt.Printf("Cleanup plan %s is %s; notify %s first.\n", plan.ID, plan.Status, c.StakeholderName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the date is in doubt")
	return cmd
}

func commitmentAbandonCmd() *cobra.Command {
	var opts engine.AbandonOptions
	cmd := &cobra.Command{
		Use:   "abandon <id>",
		Short: "Abandon a commitment",
		Args:  exactArgs("<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Abandon(ctx, args[0], opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("%s: %s\n", c.ID, c.Status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Override, "override", false, "abandon even though the stakeholder was not notified")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason recorded on the skipped cleanup plan")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <commitment-id>",
		Short: "Show task history for a commitment",
		Args:  exactArgs("<commitment-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.TaskHistory(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Task", "Event", "From", "To", "Estimate", "Actual"})
				for _, h := range entries {
					from, estimate, actual := "", "", ""
					if h.PreviousStatus != nil {
						from = string(*h.PreviousStatus)
					}
					if h.EstimatedHours != nil {
						estimate = fmt.Sprintf("%.1fh", *h.EstimatedHours)
					}
					if h.ActualHoursCategory != nil {
						actual = string(*h.ActualHoursCategory)
					}
					tw.AppendRow(table.Row{formatTime(&h.CreatedAt), h.TaskID, h.EventType, from, h.NewStatus, estimate, actual})
				}
				tw.Render()
				return nil
			})
		},
	}
}
