package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reservadesk/reservadesk/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage panel accounts",
		Long:  "Create, list and delete the accounts that can sign in to the reservation API.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeleteCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		password string
		noAdmin  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account",
		Example: `  reservadesk user create --username admin --password secretpass
  reservadesk user create --username admin  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(cmd.Context(), username, password, !noAdmin)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVar(&noAdmin, "no-admin", false, "Create the account without admin rights")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserCreate(ctx context.Context, username, password string, isAdmin bool) error {
	if password == "" {
		var err error
		if password, err = promptPassword(true); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// Only CreateUser is used here, so the signing secret is irrelevant.
	authSvc := service.NewAuthService(st, cfg.Auth.JWTSecret, 0)
	u, err := authSvc.CreateUser(ctx, username, password, isAdmin)
	if err != nil {
		return err
	}

	fmt.Printf("Created user %q (id %s, admin: %v)\n", u.Username, u.ID, u.IsAdmin)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(ctx context.Context, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	users, err := st.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No users configured. Use 'reservadesk user create' to create one.")
		return nil
	}

	fmt.Printf("%-22s %-24s %-6s %-20s\n", "ID", "USERNAME", "ADMIN", "CREATED")
	fmt.Printf("%-22s %-24s %-6s %-20s\n", "--", "--------", "-----", "-------")
	for _, u := range users {
		admin := "yes"
		if !u.IsAdmin {
			admin = "no"
		}
		fmt.Printf("%-22s %-24s %-6s %-20s\n", u.ID, u.Username, admin, u.CreatedAt.Format(time.DateTime))
	}

	return nil
}

// ---------- user delete ----------

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <username>",
		Aliases: []string{"rm"},
		Short:   "Delete an account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if err := st.DeleteUser(ctx, args[0]); err != nil {
				return fmt.Errorf("delete user %q: %w", args[0], err)
			}
			fmt.Printf("Deleted user %q\n", args[0])
			return nil
		},
	}
}
