package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"giglane/internal/app"
	"giglane/internal/config"
	"giglane/internal/db"
	"giglane/internal/domain"
	"giglane/internal/engine"
	"giglane/internal/handle"
	"giglane/internal/migrate"
	"giglane/internal/money"
	"giglane/internal/repo"
	"giglane/internal/server"
	"giglane/internal/storage"
	"giglane/internal/wizard"
)

var rootCmd = &cobra.Command{
	Use:   "gg",
	Short: "Giglane CLI",
	Long: `Giglane runs a freelance marketplace workspace: agencies, projects
with escrowed budgets, tasks that commit against those budgets, and
contracts that settle through wallets.

- Workspace: the .giglane data directory holding one marketplace.
- Agency: a provider profile created through the guided wizard
  (type, logo, name, handle, mailbox). Handles are unique per workspace.
- Project: client work with a budget; tasks allocate from it and the
  remaining headroom is classified healthy / warning / exhausted.
- Contract: a client-contractor agreement that moves wallet funds on
  completion.
- Event log: diary of changes, view with 'gg log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
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
	viper.SetEnvPrefix("GIGLANE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("workspace-id", "", "workspace id (overrides single-workspace default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("workspace-id", rootCmd.PersistentFlags().Lookup("workspace-id"))
}

func registerCommands() {
	rootCmd.AddCommand(workspaceCmd())
	rootCmd.AddCommand(agencyCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(contractCmd())
	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- workspace ---

func workspaceCmd() *cobra.Command {
	ws := &cobra.Command{Use: "workspace", Short: "Manage workspaces"}
	ws.AddCommand(workspaceInitCmd())
	ws.AddCommand(workspaceListCmd())
	ws.AddCommand(workspaceShowCmd())
	ws.AddCommand(workspaceArchiveCmd())
	ws.AddCommand(workspaceConfigCmd())
	return ws
}

func workspaceInitCmd() *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			store, err := storage.NewFSStore(db.BlobRoot(workspace))
			if err != nil {
				return err
			}
			e := engine.New(conn, config.Default(id), store)
			w, err := e.InitWorkspace(cmd.Context(), id, name, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			return printJSONOrTable(w)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "workspace id")
	cmd.Flags().StringVar(&name, "name", "", "workspace name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func workspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWorkspaces(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func workspaceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Repo.GetWorkspace(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func workspaceArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Archive the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.ArchiveWorkspace(ctx, e.Config.Workspace.ID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func workspaceConfigCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show workspace config stored in DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	})
	cfg.AddCommand(workspaceConfigImportCmd())
	return cfg
}

func workspaceConfigImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import workspace config from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			workspaceID := cfg.Workspace.ID
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if workspaceID == "" {
					workspaceID = e.Config.Workspace.ID
				}
				if err := e.Repo.UpsertWorkspaceConfig(ctx, workspaceID, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// --- agency ---

func agencyCmd() *cobra.Command {
	agency := &cobra.Command{
		Use:   "agency",
		Short: "Manage agencies",
		Long:  "Agencies are provider profiles. Creation runs the guided wizard: type, optional logo, name, handle (checked for availability), mailbox.",
	}
	agency.AddCommand(agencyCreateCmd())
	agency.AddCommand(agencyCheckCmd())
	agency.AddCommand(agencyListCmd())
	agency.AddCommand(agencyShowCmd())
	return agency
}

func agencyCreateCmd() *cobra.Command {
	var agencyType, name, handleVal, mailbox, logoPath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agency via the wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				workspaceID := e.Config.Workspace.ID
				rules := wizard.AgencyRules{
					Types:         e.Config.AgencyTypes(),
					Aliases:       e.Config.Agencies.Aliases,
					MailboxDomain: e.Config.Handles.MailboxDomain,
				}
				w := wizard.Agency(rules)
				w.Set(wizard.FieldType, agencyType)
				if logoPath != "" {
					data, err := os.ReadFile(logoPath)
					if err != nil {
						return fmt.Errorf("read logo: %w", err)
					}
					w.Attach(&wizard.Attachment{Filename: filepath.Base(logoPath), Data: data})
				}
				w.Set(wizard.FieldName, name)
				w.Set(wizard.FieldHandle, handleVal)
				checker := handle.NewChecker(repo.WorkspaceDirectory{Repo: e.Repo, WorkspaceID: workspaceID})
				w.ApplyHandleResult(checker.Check(ctx, handleVal))
				w.Set(wizard.FieldMailbox, mailbox)

				for {
					if err := w.Advance(); err != nil {
						if errors.Is(err, wizard.ErrNotTerminal) {
							break
						}
						return err
					}
				}
				actorID := viper.GetString("actor-id")
				id, err := w.Submit(ctx, func(ctx context.Context, req wizard.CreationRequest) (string, error) {
					opts := engine.AgencyCreateOptions{
						WorkspaceID:    workspaceID,
						Name:           req.Name,
						Handle:         req.Username,
						AgencyType:     req.AgencyType,
						OwnerEmail:     req.OwnerEmail,
						IdempotencyKey: req.IdempotencyKey,
						ActorID:        actorID,
					}
					if req.Logo != nil {
						opts.LogoFilename = req.Logo.Filename
						opts.Logo = req.Logo.Data
					}
					a, err := e.CreateAgency(ctx, opts)
					if err != nil {
						return "", err
					}
					return a.ID, nil
				})
				if err != nil {
					return err
				}
				a, err := e.Repo.GetAgency(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&agencyType, "type", "", "agency type or alias (e.g. va, design)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&handleVal, "handle", "", "unique handle")
	cmd.Flags().StringVar(&mailbox, "mailbox", "", "mailbox local part (hello -> hello@<handle>.com)")
	cmd.Flags().StringVar(&logoPath, "logo", "", "path to a logo file (optional)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("mailbox")
	return cmd
}

func agencyCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <handle>",
		Short: "Check handle availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res := e.CheckHandle(ctx, e.Config.Workspace.ID, args[0])
				return printJSONOrTable(res)
			})
		},
	}
}

func agencyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListAgencies(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Handle", "Name", "Type", "Owner"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Handle, a.Name, a.AgencyType, a.OwnerEmail})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func agencyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id-or-handle>",
		Short: "Show an agency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Repo.GetAgency(ctx, args[0])
				if errors.Is(err, repo.ErrNotFound) {
					a, err = e.Repo.GetAgencyByHandle(ctx, e.Config.Workspace.ID, args[0])
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

// --- project ---

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectBudgetCmd())
	prj.AddCommand(projectStatusCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var title, budget, agencyID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with a budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := money.Parse(budget)
			if err != nil {
				return fmt.Errorf("--budget: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					WorkspaceID: e.Config.Workspace.ID,
					AgencyID:    agencyID,
					Title:       title,
					BudgetTotal: total,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&budget, "budget", "", "budget total, e.g. 500.00")
	cmd.Flags().StringVar(&agencyID, "agency", "", "agency id (optional)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Budget", "Allocated"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Status, p.BudgetTotal.String(), p.BudgetAllocated.String()})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget <id>",
		Short: "Show budget headroom and tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.ProjectBudget(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				fmt.Printf("Project: %s\n", report.ProjectID)
				fmt.Printf("Total:     %s\n", report.Total)
				fmt.Printf("Allocated: %s\n", report.Allocated)
				fmt.Printf("Remaining: %s\n", report.Remaining)
				fmt.Printf("Tier:      %s\n", report.Tier)
				return nil
			})
		},
	}
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set project status (active, paused, completed, archived)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetProjectStatus(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

// --- task ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks commit their cost against the project budget on creation and free it on cancel. Statuses flow open -> in_progress -> review -> done.",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskCancelCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var projectID, title, description, assignee, cost string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := money.Parse(costOrZero(cost))
			if err != nil {
				return fmt.Errorf("--cost: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					ProjectID:   projectID,
					Title:       title,
					Description: description,
					AssigneeID:  assignee,
					Cost:        amount,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&assignee, "assignee-id", "", "assignee id")
	cmd.Flags().StringVar(&cost, "cost", "0.00", "cost, e.g. 40.00")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func costOrZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0.00"
	}
	return s
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Cost", "Assignee"})
				for _, t := range tasks {
					assignee := ""
					if t.AssigneeID != nil {
						assignee = *t.AssigneeID
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Cost.String(), assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set task status (in_progress, review, done, canceled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTaskStatus(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a task and free its budget allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTaskStatus(ctx, args[0], "canceled", viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

// --- contract ---

func contractCmd() *cobra.Command {
	contract := &cobra.Command{
		Use:   "contract",
		Short: "Manage contracts",
		Long:  "Contracts flow draft -> sent -> accepted -> completed (declined and withdrawn are exits). Completion settles the amount between the client and contractor wallets.",
	}
	contract.AddCommand(contractCreateCmd())
	contract.AddCommand(contractListCmd())
	contract.AddCommand(contractStatusCmd())
	return contract
}

func contractCreateCmd() *cobra.Command {
	var projectID, taskID, clientID, contractorID, amount string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateContract(ctx, engine.ContractCreateOptions{
					ProjectID:    projectID,
					TaskID:       taskID,
					ClientID:     clientID,
					ContractorID: contractorID,
					Amount:       amt,
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&taskID, "task", "", "task id (optional)")
	cmd.Flags().StringVar(&clientID, "client", "", "client actor id")
	cmd.Flags().StringVar(&contractorID, "contractor", "", "contractor actor id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 200.00")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("contractor")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func contractListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListContracts(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func contractStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set contract status (sent, accepted, declined, withdrawn, completed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.SetContractStatus(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

// --- wallet ---

func walletCmd() *cobra.Command {
	wallet := &cobra.Command{Use: "wallet", Short: "Manage wallets"}
	wallet.AddCommand(walletShowCmd())
	wallet.AddCommand(walletDepositCmd())
	return wallet
}

func walletShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <owner-id>",
		Short: "Show a wallet account with recent entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				acct, err := e.Repo.GetWalletAccount(ctx, e.Config.Workspace.ID, args[0])
				if err != nil {
					return err
				}
				entries, err := e.Repo.ListWalletEntries(ctx, acct.ID, 20)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"account": acct,
					"entries": entries,
				})
			})
		},
	}
}

func walletDepositCmd() *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "deposit <owner-id>",
		Short: "Deposit into a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				acct, err := e.Deposit(ctx, e.Config.Workspace.ID, args[0], amt, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(acct)
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 300.00")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// --- log ---

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, e.Config.Workspace.ID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// --- keys ---

func keysCmd() *cobra.Command {
	keys := &cobra.Command{Use: "keys", Short: "Manage API keys"}
	keys.AddCommand(keysCreateCmd())
	keys.AddCommand(keysListCmd())
	keys.AddCommand(keysRevokeCmd())
	return keys
}

func keysCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (prints the raw key once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw := uuid.New().String() + uuid.New().String()
				key := domain.APIKey{
					ID:      uuid.New().String(),
					ActorID: actorID,
					Name:    name,
					KeyHash: repo.HashAPIKey(raw),
				}
				if err := r.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{
					"id":       key.ID,
					"actor_id": key.ActorID,
					"key":      raw,
				})
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func keysListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor")
	return cmd
}

func keysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacy bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveWorkspaceAndConfig(cmd.Context(), viper.GetString("workspace-id"), viper.GetString("actor-id"), r)
			if err != nil {
				return err
			}
			store, err := storage.NewFSStore(db.BlobRoot(workspace))
			if err != nil {
				return err
			}
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()
			e := engine.New(conn, cfg, store)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("GIGLANE_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacy,
				Logger:                 logger,
			}
			if authCfg.JWTSecret == "" && !allowLegacy {
				return fmt.Errorf("GIGLANE_JWT_SECRET is required for bearer auth (or pass --allow-legacy-actor-header for local use)")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: logger})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Giglane API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-actor-header", false, "accept X-Actor-Id without auth (local only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveWorkspaceAndConfig(ctx, viper.GetString("workspace-id"), viper.GetString("actor-id"), r)
	if err != nil {
		return err
	}
	store, err := storage.NewFSStore(db.BlobRoot(workspace))
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg, store)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
