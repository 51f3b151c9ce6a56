// Command clinicctl reúne tarefas administrativas: migrations, dados demo,
// criação de conta e o relatório financeiro anual no terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/automations"
	"github.com/consultorio/backend/internal/config"
	"github.com/consultorio/backend/internal/db"
	"github.com/consultorio/backend/internal/finance"
	"github.com/consultorio/backend/internal/logging"
	"github.com/consultorio/backend/internal/migrate"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/seed"
	"github.com/consultorio/backend/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Administração do backend do consultório",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(createTherapistCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

// env abre config, logger e banco; close deve ser chamado pelo comando.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *db.DB
}

func open(ctx context.Context) (*env, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: 2}, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: d}, nil
}

func (e *env) close() {
	e.db.Close()
	_ = e.logger.Sync()
}

func (e *env) location() *time.Location {
	loc, err := time.LoadLocation(e.cfg.ReminderTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrations pendentes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			applied, err := migrate.Run(cmd.Context(), e.db.Gorm, migrations.FS)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nenhuma migration pendente")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "aplicada:", v)
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Cria a conta demo com dados de exemplo",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			if _, err := migrate.Run(cmd.Context(), e.db.Gorm, migrations.FS); err != nil {
				return err
			}
			id, err := seed.Run(cmd.Context(), e.db.Gorm, e.db.Pool, time.Now().In(e.location()), e.logger)
			if errors.Is(err, seed.ErrAlreadySeeded) {
				fmt.Fprintln(cmd.OutOrStdout(), "conta demo já existe:", seed.DemoEmail)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "conta demo criada: %s / %s (%s)\n", seed.DemoEmail, seed.DemoPassword, id)
			return nil
		},
	}
}

func createTherapistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-therapist",
		Short: "Cria um terapeuta (ou super admin com --admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			admin, _ := cmd.Flags().GetBool("admin")
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || strings.TrimSpace(name) == "" {
				return errors.New("--email e --name são obrigatórios")
			}
			if len(password) < 8 {
				return errors.New("--password precisa de ao menos 8 caracteres")
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			role := auth.RoleTherapist
			if admin {
				role = auth.RoleSuperAdmin
			}
			id, err := repo.CreateTherapist(cmd.Context(), e.db.Pool, email, hash, strings.TrimSpace(name), role)
			if repo.IsUniqueViolation(err) {
				return fmt.Errorf("e-mail já cadastrado: %s", email)
			}
			if err != nil {
				return err
			}
			defs, err := automations.Defaults()
			if err != nil {
				return err
			}
			if err := repo.EnsureAutomations(cmd.Context(), e.db.Gorm, id, defs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "criado %s (%s)\n", id, role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "E-mail de login")
	cmd.Flags().String("name", "", "Nome completo")
	cmd.Flags().String("password", "", "Senha inicial")
	cmd.Flags().Bool("admin", false, "Cria como SUPER_ADMIN")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Relatório financeiro anual de um terapeuta",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			year, _ := cmd.Flags().GetInt("year")
			asJSON, _ := cmd.Flags().GetBool("json")
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			t, err := repo.TherapistByEmail(cmd.Context(), e.db.Pool, email)
			if repo.IsNotFound(err) {
				return fmt.Errorf("terapeuta não encontrado: %s", email)
			}
			if err != nil {
				return err
			}
			now := time.Now().In(e.location())
			if year == 0 {
				year = now.Year()
			}
			from, to, err := finance.YearRange(year)
			if err != nil {
				return err
			}
			txs, err := repo.ListTransactions(cmd.Context(), e.db.Gorm, t.ID, repo.TransactionFilter{From: from, To: to})
			if err != nil {
				return err
			}
			rep := finance.BuildAnnualReport(year, txs, now)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(cmd, rep)
			return nil
		},
	}
	cmd.Flags().String("email", "", "E-mail do terapeuta")
	cmd.Flags().Int("year", 0, "Ano do relatório (padrão: ano atual)")
	cmd.Flags().Bool("json", false, "Saída em JSON")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func printReport(cmd *cobra.Command, rep finance.AnnualReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Relatório %d\n\n", rep.Year)
	fmt.Fprintf(out, "%-10s %14s %14s %14s %8s\n", "Mês", "Receita", "Despesa", "Saldo", "Sessões")
	for _, m := range rep.Months {
		fmt.Fprintf(out, "%-10s %14s %14s %14s %8d\n", m.Label, m.Income.BRL(), m.Expense.BRL(), m.Balance.BRL(), m.SessionCount)
	}
	s := rep.Summary
	fmt.Fprintf(out, "\nTotal: receita %s, despesa %s, saldo %s, %d sessões\n",
		s.TotalIncome.BRL(), s.TotalExpense.BRL(), s.TotalBalance.BRL(), s.TotalSessions)
	if s.BestMonth != nil && s.WorstMonth != nil {
		fmt.Fprintf(out, "Melhor mês: %s  Pior mês: %s\n", s.BestMonth.Label, s.WorstMonth.Label)
	}
	fmt.Fprintf(out, "Crescimento (%s): receita %.1f%%, despesa %.1f%%\n",
		rep.Growth.ReferenceMonth, rep.Growth.IncomeGrowth, rep.Growth.ExpenseGrowth)
}
