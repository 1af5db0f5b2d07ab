// Package main implements the finctl CLI for scripted operations
// against the finsight backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/finsight/internal/api"
	"github.com/fyrsmithlabs/finsight/internal/config"
	"github.com/fyrsmithlabs/finsight/internal/finance"
	"github.com/fyrsmithlabs/finsight/internal/ingest"
	"github.com/fyrsmithlabs/finsight/internal/logging"
	"github.com/fyrsmithlabs/finsight/internal/store"
)

var (
	// serverURL overrides the configured backend base URL
	serverURL string
	// configPath overrides the default config file location
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finctl",
	Short: "CLI for finsight backend operations",
	Long: `finctl is a command-line interface for the finsight backend.
It uploads bank statements, inspects the financial context, and manages
transactions, budget policies and savings goals without the TUI.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(addTransactionCmd)
	rootCmd.AddCommand(addPolicyCmd)
	rootCmd.AddCommand(setGoalCmd)
	rootCmd.AddCommand(watchCmd)
}

// setup loads the config and builds the backend client. Every command
// needs both.
func setup() (*config.Config, *api.Client, api.Identity, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, api.Identity{}, err
	}
	if serverURL != "" {
		cfg.Backend.BaseURL = serverURL
	}
	id := api.Identity{UserID: cfg.Identity.UserID, Email: cfg.Identity.Email}
	return cfg, api.NewClient(cfg.Backend.BaseURL), id, nil
}

func requireIdentity(id api.Identity) error {
	if !id.Valid() {
		return fmt.Errorf("no identity configured: set identity.email and identity.user_id in the config, or FINSIGHT_IDENTITY_EMAIL / FINSIGHT_IDENTITY_USER_ID")
	}
	return nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Register or look up the configured identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		exists, err := client.Login(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			fmt.Printf("Signed in as %s (existing account)\n", id.Email)
		} else {
			fmt.Printf("Created account for %s\n", id.Email)
		}
		return nil
	},
}

var previewOnly bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload a bank statement CSV",
	Long: `Upload a bank statement CSV to the backend.

The file must have Date, Description and Amount columns. With
--preview the statement is parsed locally and nothing is sent.

Examples:
  finctl upload statement.csv
  finctl upload --preview statement.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		if previewOnly {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			txs, err := finance.ReadStatement(f)
			if err != nil {
				return err
			}
			fmt.Printf("%d transactions parsed from %s\n", len(txs), path)
			for _, t := range txs {
				fmt.Printf("  %s  %-30s %s\n", t.Date, t.Description, finance.FormatAmount(t.Amount))
			}
			return nil
		}

		_, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		st := store.New(client, nil)
		n, err := st.Upload(ctx, id, filepath.Base(path), f)
		if errors.Is(err, store.ErrNoTransactions) {
			fmt.Println("No transactions found in statement; nothing imported.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d transactions\n", n)
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the financial context and summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		fin, err := client.FetchContext(ctx, id)
		if err != nil {
			return err
		}
		sum := finance.Summarize(fin)

		fmt.Printf("Spending: %s  Income: %s  Net: %s\n",
			finance.FormatAmount(sum.TotalSpending),
			finance.FormatAmount(sum.TotalIncome),
			finance.FormatAmount(sum.NetFlow))

		if len(sum.SpendingByCategory) > 0 {
			fmt.Println("\nBy category:")
			for _, c := range sum.SpendingByCategory {
				fmt.Printf("  %-15s %s\n", c.Category, finance.FormatAmount(c.Amount))
			}
		}

		if len(fin.Policies) > 0 {
			fmt.Println("\nPolicies:")
			for _, p := range fin.Policies {
				fmt.Printf("  %s: %s of %s (%d%%)\n", p.Description,
					finance.FormatAmount(p.CurrentSpending),
					finance.FormatAmount(p.LimitAmount), p.Progress())
			}
		}

		if len(fin.Goals) > 0 {
			fmt.Println("\nGoals:")
			for _, g := range fin.Goals {
				fmt.Printf("  %s: %s of %s (%d%%)\n", g.GoalName,
					finance.FormatAmount(g.CurrentProgress),
					finance.FormatAmount(g.TargetAmount), g.Progress())
			}
		}

		fmt.Printf("\nTransactions: %d\n", len(fin.Transactions))
		for _, t := range fin.Transactions {
			fmt.Printf("  %s  %-30s %10s  %s\n", t.Date, t.Description,
				finance.FormatAmount(t.Amount), t.Category)
		}
		return nil
	},
}

var (
	txDate        string
	txDescription string
	txAmount      string
	txCategory    string
)

var addTransactionCmd = &cobra.Command{
	Use:     "add-transaction",
	Short:   "Add a single transaction",
	Example: `  finctl add-transaction --date 2024-02-01 --description "Coffee" --amount -4.50 --category "Food & Drink"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(txAmount)
		if err != nil {
			return fmt.Errorf("invalid --amount %q: %w", txAmount, err)
		}
		tx := finance.NewTransaction{
			Date:        txDate,
			Description: txDescription,
			Amount:      amount,
			Category:    finance.Category(txCategory),
		}
		if err := tx.Validate(); err != nil {
			return err
		}

		_, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		fin, err := client.AddTransaction(ctx, id, tx)
		if err != nil {
			return err
		}
		fmt.Printf("Added. Context now holds %d transactions.\n", len(fin.Transactions))
		return nil
	},
}

var (
	policyDescription string
	policyLimit       string
	policyCategory    string
)

var addPolicyCmd = &cobra.Command{
	Use:     "add-policy",
	Short:   "Add a budget policy",
	Example: `  finctl add-policy --description "Coffee Budget" --limit 50 --category "Food & Drink"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := decimal.NewFromString(policyLimit)
		if err != nil {
			return fmt.Errorf("invalid --limit %q: %w", policyLimit, err)
		}
		p := finance.NewPolicy{
			Description:    policyDescription,
			LimitAmount:    limit,
			TargetCategory: finance.Category(policyCategory),
		}
		if err := p.Validate(); err != nil {
			return err
		}

		_, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		fin, err := client.AddPolicy(ctx, id, p)
		if err != nil {
			return err
		}
		fmt.Printf("Added. Context now holds %d policies.\n", len(fin.Policies))
		return nil
	},
}

var (
	goalName   string
	goalTarget string
)

var setGoalCmd = &cobra.Command{
	Use:     "set-goal",
	Short:   "Set the savings goal",
	Example: `  finctl set-goal --name "Emergency Fund" --target 5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := decimal.NewFromString(goalTarget)
		if err != nil {
			return fmt.Errorf("invalid --target %q: %w", goalTarget, err)
		}
		g := finance.NewGoal{GoalName: goalName, TargetAmount: target}
		if err := g.Validate(); err != nil {
			return err
		}

		_, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := client.SetGoal(ctx, id, g); err != nil {
			return err
		}
		fmt.Printf("Goal %q set with target %s\n", g.GoalName, finance.FormatAmount(g.TargetAmount))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a folder and upload new statement CSVs",
	Long: `Watch a directory and upload every new CSV statement dropped
into it. Runs until interrupted.

Examples:
  finctl watch ~/Downloads/statements`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, id, err := setup()
		if err != nil {
			return err
		}
		if err := requireIdentity(id); err != nil {
			return err
		}

		cfg.Log.Format = "console"
		logger, flush, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer flush()

		st := store.New(client, logger)
		watcher, err := ingest.New(args[0], st, id, logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		if err := watcher.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("Watching %s (ctrl+c to stop)\n", args[0])

		for {
			select {
			case sig := <-sigCh:
				fmt.Fprintf(os.Stderr, "Received %v, stopping\n", sig)
				return nil
			case r := <-watcher.Results():
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Printf("%s: imported %d transactions\n", r.Path, r.Imported)
			}
		}
	},
}

func init() {
	addTransactionCmd.Flags().StringVar(&txDate, "date", "", "transaction date (YYYY-MM-DD)")
	addTransactionCmd.Flags().StringVar(&txDescription, "description", "", "transaction description")
	addTransactionCmd.Flags().StringVar(&txAmount, "amount", "", "amount, negative for expenses")
	addTransactionCmd.Flags().StringVar(&txCategory, "category", "", "category name")

	addPolicyCmd.Flags().StringVar(&policyDescription, "description", "", "policy description")
	addPolicyCmd.Flags().StringVar(&policyLimit, "limit", "", "spending limit")
	addPolicyCmd.Flags().StringVar(&policyCategory, "category", "", "target category")

	setGoalCmd.Flags().StringVar(&goalName, "name", "", "goal name")
	setGoalCmd.Flags().StringVar(&goalTarget, "target", "", "target amount")

	uploadCmd.Flags().BoolVar(&previewOnly, "preview", false, "parse locally without uploading")
}
