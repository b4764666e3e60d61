package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reservadesk/reservadesk/internal/adminui"
	"github.com/reservadesk/reservadesk/internal/model"
)

var apiURL string

func newPanelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Terminal admin panel for the reservation API",
		Long: `Sign in to a running reservadesk server and manage reservations.

The session token is kept in <data-dir>/token until logout or until the server
rejects it.`,
	}

	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "Base URL of the reservadesk server")

	cmd.AddCommand(newPanelLoginCmd())
	cmd.AddCommand(newPanelLogoutCmd())
	cmd.AddCommand(newPanelListCmd())
	cmd.AddCommand(newPanelCreateCmd())
	cmd.AddCommand(newPanelActionCmd("confirm", "Confirm a reservation", (*adminui.Panel).ConfirmSelected))
	cmd.AddCommand(newPanelActionCmd("cancel", "Cancel a reservation", (*adminui.Panel).CancelSelected))
	cmd.AddCommand(newPanelActionCmd("delete", "Delete a reservation", (*adminui.Panel).DeleteSelected))

	return cmd
}

func newPanel() *adminui.Panel {
	tokens := adminui.NewFileTokenStore(filepath.Join(resolveDataDir(), "token"))
	return adminui.NewPanel(adminui.NewClient(apiURL, nil), tokens)
}

// openSession restores the stored session and fails when there is none.
func openSession(ctx context.Context) (*adminui.Panel, error) {
	p := newPanel()
	if err := p.Init(ctx); err != nil {
		return nil, panelError(p, err)
	}
	if !p.LoggedIn {
		return nil, fmt.Errorf("not logged in; run 'reservadesk panel login'")
	}
	return p, nil
}

// panelError prefixes err with the panel's operator message.
func panelError(p *adminui.Panel, err error) error {
	if p.Error == "" {
		return err
	}
	return fmt.Errorf("%s: %w", p.Error, err)
}

// ---------- panel login / logout ----------

func newPanelLoginCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = promptPassword(false); err != nil {
					return err
				}
			}
			p := newPanel()
			if err := p.Login(cmd.Context(), username, password); err != nil {
				return panelError(p, err)
			}
			fmt.Printf("Logged in as %q, %d reservations\n", username, len(p.Reservations))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func newPanelLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newPanel().Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

// ---------- panel list ----------

func newPanelListCmd() *cobra.Command {
	var (
		jsonOutput bool
		calendar   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openSession(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p.Reservations)
			}
			if len(p.Reservations) == 0 {
				fmt.Println("No reservations.")
				return nil
			}
			if calendar {
				printEvents(p.Events())
				return nil
			}
			printReservations(p.Reservations)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&calendar, "calendar", false, "Show reservations as calendar events")

	return cmd
}

func printReservations(list []model.Reservation) {
	fmt.Printf("%-22s %-17s %-24s %-6s %-10s %-7s\n", "ID", "DATE", "NAME", "PEOPLE", "STATUS", "VERSION")
	fmt.Printf("%-22s %-17s %-24s %-6s %-10s %-7s\n", "--", "----", "----", "------", "------", "-------")
	for _, r := range list {
		fmt.Printf("%-22s %-17s %-24s %-6d %-10s %-7d\n",
			r.ID, r.Date.Local().Format("2006-01-02 15:04"), r.Name, r.People, r.Status, r.Version)
	}
}

func printEvents(events []adminui.Event) {
	day := ""
	for _, e := range events {
		if d := e.Start.Local().Format("Mon 2006-01-02"); d != day {
			day = d
			fmt.Println(day)
		}
		fmt.Printf("  %s-%s  %-28s %s\n",
			e.Start.Local().Format("15:04"), e.End.Local().Format("15:04"), e.Title, e.Reservation.Status)
	}
}

// ---------- panel create ----------

func newPanelCreateCmd() *cobra.Command {
	var (
		in   model.ReservationInput
		date string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a reservation",
		Example: `  reservadesk panel create --name Ana --email ana@example.com --people 4 --date 2026-05-01T20:00:00+02:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := time.Parse(time.RFC3339, date)
			if err != nil {
				return fmt.Errorf("invalid --date (want RFC 3339): %w", err)
			}
			in.Date = t

			p, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			r, err := p.Create(cmd.Context(), in)
			if err != nil {
				var apiErr *adminui.APIError
				if errors.As(err, &apiErr) {
					for field, reason := range apiErr.Fields {
						fmt.Fprintf(os.Stderr, "  %s: %s\n", field, reason)
					}
				}
				return panelError(p, err)
			}
			fmt.Printf("Created reservation %s (%s)\n", r.ID, r.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Guest name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Guest email")
	cmd.Flags().IntVar(&in.People, "people", 0, "Party size")
	cmd.Flags().StringVar(&date, "date", "", "Reservation time in RFC 3339")
	cmd.MarkFlagRequired("date")

	return cmd
}

// ---------- panel confirm / cancel / delete ----------

func newPanelActionCmd(use, short string, action func(*adminui.Panel, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			if !p.Select(args[0]) {
				return fmt.Errorf("reservation %q not found", args[0])
			}
			if err := action(p, cmd.Context()); err != nil {
				return panelError(p, err)
			}
			fmt.Printf("Done: %s %s, %d reservations\n", use, args[0], len(p.Reservations))
			return nil
		},
	}
}
