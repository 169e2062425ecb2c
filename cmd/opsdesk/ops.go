package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opsdesk/internal/engine"
)

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func requestCmd() *cobra.Command {
	req := &cobra.Command{
		Use:   "request",
		Short: "Manage project requests",
		Long:  "Requests move new -> analyzed -> prioritized -> assigned -> in_progress, and end as completed or delayed. Ranking only looks at requests that are still open.",
	}
	req.AddCommand(requestIngestCmd())
	req.AddCommand(requestListCmd())
	req.AddCommand(requestRankCmd())
	req.AddCommand(requestShowCmd())
	req.AddCommand(requestAdvanceCmd())
	return req
}

func requestIngestCmd() *cobra.Command {
	var opts engine.RequestCreateOptions
	var advance float64
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store a new project request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("advance-amount") {
				opts.AdvanceAmount = &advance
			}
			opts.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.IngestRequest(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "request id (generated when empty)")
	cmd.Flags().StringVar(&opts.ClientName, "client", "", "client name")
	cmd.Flags().StringVar(&opts.ClientCompany, "company", "", "client company")
	cmd.Flags().StringVar(&opts.ClientEmail, "email", "", "client email")
	cmd.Flags().StringVar(&opts.ProjectType, "type", "", "project type")
	cmd.Flags().StringVar(&opts.RawContent, "raw", "", "original message text")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "deadline (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().Float64Var(&opts.Budget, "budget", 0, "budget")
	cmd.Flags().BoolVar(&opts.AdvancePaid, "advance-paid", false, "advance received")
	cmd.Flags().Float64Var(&advance, "advance-amount", 0, "advance amount")
	cmd.Flags().IntVar(&opts.EstimatedEffortDays, "effort-days", 0, "estimated effort in days")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func requestListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListRequests(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Client", "Deadline", "Budget", "Advance", "Status")
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.ClientName, p.Deadline, p.Budget, p.AdvancePaid, p.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func requestRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank open requests by priority",
		Long:  "Scores every open request (deadline urgency, payment status, project value, client importance, team load penalty) and orders them highest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ranked, err := e.RankRequests(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ranked)
				}
				fmt.Printf("Team load: %.1f%%\n", ranked.TeamLoad)
				tw := newTable("#", "ID", "Client", "Score", "Level", "Reasoning")
				for i, p := range ranked.Requests {
					score := 0
					if p.PriorityScore != nil {
						score = *p.PriorityScore
					}
					tw.AppendRow(table.Row{i + 1, p.ID, p.ClientName, score, p.PriorityLevel, strings.Join(p.Reasoning, "; ")})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func requestShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetRequest(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
}

func requestAdvanceCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Move a request forward in its lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.AdvanceRequest(ctx, args[0], status, actorID())
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "target status")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func staffCmd() *cobra.Command {
	staff := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff",
		Long:  "Available staff workload and capacity make up the team load used in request scoring.",
	}
	staff.AddCommand(staffAddCmd())
	staff.AddCommand(staffListCmd())
	staff.AddCommand(staffUpdateCmd())
	return staff
}

func staffAddCmd() *cobra.Command {
	var opts engine.StaffCreateOptions
	var unavailable bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Available = !unavailable
			opts.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.AddStaff(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "staff id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringSliceVar(&opts.Skills, "skill", nil, "skills")
	cmd.Flags().IntVar(&opts.CurrentWorkload, "workload", 0, "current workload")
	cmd.Flags().IntVar(&opts.MaxCapacity, "capacity", 0, "max capacity")
	cmd.Flags().BoolVar(&unavailable, "unavailable", false, "exclude from team load")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func staffListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListStaff(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Available", "Workload", "Capacity", "Skills")
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name, s.Available, s.CurrentWorkload, s.MaxCapacity, strings.Join(s.Skills, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func staffUpdateCmd() *cobra.Command {
	var available bool
	var workload, capacity int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update availability, workload or capacity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.StaffUpdateOptions{ID: args[0], ActorID: actorID()}
			if cmd.Flags().Changed("available") {
				opts.Available = &available
			}
			if cmd.Flags().Changed("workload") {
				opts.CurrentWorkload = &workload
			}
			if cmd.Flags().Changed("capacity") {
				opts.MaxCapacity = &capacity
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.UpdateStaff(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	cmd.Flags().BoolVar(&available, "available", true, "availability")
	cmd.Flags().IntVar(&workload, "workload", 0, "current workload")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "max capacity")
	return cmd
}

func resourceCmd() *cobra.Command {
	res := &cobra.Command{
		Use:   "resource",
		Short: "Manage inventory resources",
		Long:  "A resource is low on stock once its quantity is at or below its minimum threshold. Low stock is what the inventory monitor proposes restocks for.",
	}
	res.AddCommand(resourceAddCmd())
	res.AddCommand(resourceListCmd())
	res.AddCommand(resourceSetQtyCmd())
	return res
}

func resourceAddCmd() *cobra.Command {
	var opts engine.ResourceCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.AddResource(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(r)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "resource id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Type, "type", "", "resource type")
	cmd.Flags().Float64Var(&opts.Quantity, "qty", 0, "quantity on hand")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "unit")
	cmd.Flags().Float64Var(&opts.MinThreshold, "min", 0, "minimum threshold")
	cmd.Flags().Float64Var(&opts.MaxThreshold, "max", 0, "maximum threshold")
	cmd.Flags().Float64Var(&opts.CostPerUnit, "cost", 0, "cost per unit")
	cmd.Flags().StringVar(&opts.Supplier, "supplier", "", "supplier")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func resourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListResources(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Qty", "Min", "Max", "Unit", "Supplier")
				for _, r := range items {
					tw.AppendRow(table.Row{r.ID, r.Name, r.Quantity, r.MinThreshold, r.MaxThreshold, r.Unit, r.Supplier})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func resourceSetQtyCmd() *cobra.Command {
	var qty float64
	cmd := &cobra.Command{
		Use:   "set-qty <id>",
		Short: "Record a stock count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.SetResourceQuantity(ctx, args[0], qty, actorID())
				if err != nil {
					return err
				}
				return printJSON(r)
			})
		},
	}
	cmd.Flags().Float64Var(&qty, "qty", 0, "quantity on hand")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage operational tasks",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pending task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (generated when empty)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "medium", "low, medium, high or urgent")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListTasks(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Title", "Status", "Priority", "Assignee")
				for _, t := range items {
					assignee := ""
					if t.AssigneeID != nil {
						assignee = *t.AssigneeID
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}
