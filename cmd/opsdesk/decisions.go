package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
	"opsdesk/internal/repo"
)

func decisionCmd() *cobra.Command {
	dec := &cobra.Command{
		Use:   "decision",
		Short: "Review proposed decisions",
		Long:  "Every proposal starts pending. An owner approves or rejects it exactly once; approved task assignments can then be executed.",
	}
	dec.AddCommand(decisionListCmd())
	dec.AddCommand(decisionShowCmd())
	dec.AddCommand(decisionCreateCmd())
	dec.AddCommand(decisionResolveCmd("approve", "Approve a pending decision", engine.Engine.ApproveDecision))
	dec.AddCommand(decisionResolveCmd("reject", "Reject a pending decision", engine.Engine.RejectDecision))
	dec.AddCommand(decisionResolveCmd("execute", "Carry out an approved decision", engine.Engine.ExecuteDecision))
	return dec
}

func printDecisions(items []domain.AIDecision) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Agent", "Type", "Title", "Confidence", "Status", "Approved by")
	for _, d := range items {
		by := ""
		if d.ApprovedBy != nil {
			by = *d.ApprovedBy
		}
		tw.AppendRow(table.Row{d.ID, d.AgentType, d.DecisionType, d.Title, fmt.Sprintf("%.2f", d.Confidence), d.Status, by})
	}
	tw.Render()
	return nil
}

func decisionListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List decisions in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListDecisions(ctx, status)
				if err != nil {
					return err
				}
				return printDecisions(items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending, approved, rejected or implemented")
	return cmd
}

func decisionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.GetDecision(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
}

func decisionCreateCmd() *cobra.Command {
	var opts engine.DecisionCreateOptions
	var contextJSON string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a proposal from an external agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if contextJSON != "" {
				if err := json.Unmarshal([]byte(contextJSON), &opts.Context); err != nil {
					return fmt.Errorf("--context-json: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDecision(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.AgentType, "agent", domain.AgentOperations, "agent type")
	cmd.Flags().StringVar(&opts.DecisionType, "type", "", "decision type")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Float64Var(&opts.Confidence, "confidence", 0.5, "confidence in [0,1]")
	cmd.Flags().StringVar(&contextJSON, "context-json", "", "context JSON object")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func decisionResolveCmd(verb, short string, fn func(engine.Engine, context.Context, string, string) (domain.AIDecision, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := fn(e, ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
}

func proposeCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "propose",
		Short: "Generate a proposal",
		Long:  "Proposals are recorded as pending decisions; nothing changes until an owner approves and executes them.",
	}
	p.AddCommand(proposeTaskCmd())
	p.AddCommand(proposeRestockCmd())
	p.AddCommand(proposeOptimizationCmd())
	return p
}

func proposeTaskCmd() *cobra.Command {
	var taskID, staffID, reason string
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Propose assigning a pending task to a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.ProposeTaskAssignment(ctx, taskID, staffID, reason)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	cmd.Flags().StringVar(&staffID, "staff", "", "staff id")
	cmd.Flags().StringVar(&reason, "reason", "", "reason")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("staff")
	return cmd
}

func proposeRestockCmd() *cobra.Command {
	var resourceID, urgency, reason string
	var qty float64
	cmd := &cobra.Command{
		Use:   "restock",
		Short: "Propose restocking a low-stock resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.ProposeRestock(ctx, resourceID, urgency, qty, reason)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&resourceID, "resource", "", "resource id")
	cmd.Flags().StringVar(&urgency, "urgency", "", "low, medium or high (derived when empty)")
	cmd.Flags().Float64Var(&qty, "qty", 0, "suggested quantity (derived when zero)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}

func proposeOptimizationCmd() *cobra.Command {
	var area, title, suggestion, impact string
	cmd := &cobra.Command{
		Use:   "optimization",
		Short: "Propose an operational optimization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.ProposeOptimization(ctx, area, title, suggestion, impact)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "area")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&suggestion, "suggestion", "", "suggestion")
	cmd.Flags().StringVar(&impact, "impact", "", "estimated impact")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Propose restocks for every low-stock resource",
		Long:  "Resources that already have a pending restock decision are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SweepRestock(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("Checked %d resources, proposed %d, skipped %d\n", res.Checked, len(res.Created), len(res.Skipped))
				if len(res.Created) == 0 {
					return nil
				}
				return printDecisions(res.Created)
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Stats(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				tw := newTable("Metric", "Value")
				tw.AppendRows([]table.Row{
					{"Tasks", s.TotalTasks},
					{"Pending tasks", s.PendingTasks},
					{"Completed tasks", s.CompletedTasks},
					{"Resources", s.TotalResources},
					{"Low stock", s.LowStockItems},
					{"Staff", s.StaffCount},
					{"Available staff", s.AvailableStaff},
					{"Pending decisions", s.PendingDecisions},
					{"Open requests", s.OpenRequests},
					{"Team load", fmt.Sprintf("%.1f%%", s.TeamLoadPercent)},
				})
				tw.Render()
				return nil
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RecentEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Time", "Type", "Entity", "Actor")
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}
