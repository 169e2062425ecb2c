package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opsdesk/internal/app"
	"opsdesk/internal/config"
	"opsdesk/internal/db"
	"opsdesk/internal/engine"
	"opsdesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "opsdesk",
	Short: "Opsdesk CLI",
	Long: `Opsdesk ranks incoming project requests and keeps a ledger of proposed operational decisions.
- Requests: client opportunities scored on deadline, payment, value, client history and team load.
- Staff, resources and tasks: the operational state proposals are derived from.
- Decisions: proposals from the task coordinator, inventory monitor and resource optimizer. Each one waits for an owner to approve or reject it.
- Event log: every change, view with 'opsdesk events'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("OPSDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (defaults to <workspace>/opsdesk.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "owner", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(staffCmd())
	rootCmd.AddCommand(resourceCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(decisionCmd())
	rootCmd.AddCommand(proposeCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage opsdesk.yml",
		Long:  "opsdesk.yml holds the business name, scoring rule, restock sweep interval, decision backend, logging, server and webhook settings.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default opsdesk.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !viper.GetBool("force") {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "business", "", "business name")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	_ = viper.BindPFlag("force", cmd.Flags().Lookup("force"))
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(workspaceOptions())
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate opsdesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.ResolveConfig(workspaceOptions())
			if viper.GetBool("json") {
				return printJSON(validationReport(err))
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func validationReport(err error) map[string]any {
	out := map[string]any{"ok": err == nil}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

func tokenCmd() *cobra.Command {
	var roles []string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the acting owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(workspaceOptions())
			if err != nil {
				return err
			}
			secret := jwtSecret(cfg)
			if secret == "" {
				return fmt.Errorf("no JWT secret; set OPSDESK_JWT_SECRET or server.jwt_secret")
			}
			tok, err := server.IssueToken(secret, viper.GetString("actor-id"), roles...)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&roles, "role", nil, "role claim")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the API, delivers events to configured webhooks and runs the restock sweep on the configured interval.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ws, err := app.Open(ctx, workspaceOptions())
			if err != nil {
				return err
			}
			defer ws.Close()
			cfg := ws.Config
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}
			authCfg := server.AuthConfig{JWTSecret: jwtSecret(cfg), AllowActorHeader: cfg.Server.AllowActorHeader}
			if authCfg.JWTSecret == "" && !authCfg.AllowActorHeader {
				return fmt.Errorf("no way to authenticate; set OPSDESK_JWT_SECRET or server.allow_actor_header")
			}
			handler, err := server.New(server.Config{Engine: ws.Engine, BasePath: basePath, Auth: authCfg, Logger: ws.Log})
			if err != nil {
				return err
			}

			go server.NewWebhookDispatcher(ws.Engine, cfg.Webhooks, ws.Log).Run(ctx)
			if every := cfg.SweepInterval(); every > 0 {
				go runSweeps(ctx, ws.Engine, every)
			}

			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			ws.Log.WithField("backend", cfg.Backend()).Infof("serving opsdesk API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func runSweeps(ctx context.Context, e engine.Engine, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := e.SweepRestock(ctx)
			if err != nil {
				e.Log.WithError(err).Warn("restock sweep failed")
				continue
			}
			if len(res.Created) > 0 {
				e.Log.WithField("created", len(res.Created)).Info("restock sweep proposed decisions")
			}
		}
	}
}

// --- helpers ---

func workspaceOptions() app.Options {
	return app.Options{Dir: viper.GetString("workspace"), ConfigFile: viper.GetString("config")}
}

func jwtSecret(cfg *config.Config) string {
	if s := os.Getenv("OPSDESK_JWT_SECRET"); s != "" {
		return s
	}
	return cfg.Server.JWTSecret
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.Open(ctx, workspaceOptions())
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func actorID() string {
	return viper.GetString("actor-id")
}
