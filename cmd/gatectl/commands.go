package main

import (
	"encoding/json"
	"errors"
	"fmt"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/session"
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var (
		token    string
		user     session.User
		email    string
		password string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session",
		Long: `Store a session, either directly or by authenticating against the backend.

With --token the given token and user are stored as-is (the role is
normalized). Otherwise --email and --password are posted to the backend login
endpoint and the returned session is stored.`,
		Example: `  gatectl login --token eyJ... --id 42 --role manager
  gatectl login --base-url http://localhost:8080/api --email lin@example.com --password secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				if token != "" {
					if err := e.Login(cmd.Context(), token, user); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.ID)
					return nil
				}
				if email == "" || password == "" {
					return errors.New("either --token or --email and --password are required")
				}
				sess, err := e.Authenticate(cmd.Context(), map[string]string{"email": email, "password": password})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", sess.User.ID, sess.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token to store")
	cmd.Flags().StringVar(&user.ID, "id", "", "user id, with --token")
	cmd.Flags().StringVar(&user.Role, "role", "", "user role, with --token")
	cmd.Flags().StringVar(&user.DisplayName, "name", "", "display name, with --token")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the session, ending any impersonation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				if err := e.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

// sessionView is the JSON printed by "session". The token is never shown.
type sessionView struct {
	SignedIn      bool          `json:"signedIn"`
	User          *session.User `json:"user,omitempty"`
	Impersonating bool          `json:"impersonating"`
	OriginalUser  *session.User `json:"originalUser,omitempty"`
	EntityID      string        `json:"entityId,omitempty"`
}

func (a *app) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Print the stored session as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				var view sessionView
				sess, err := e.CurrentSession(cmd.Context())
				if err != nil {
					return err
				}
				if sess != nil {
					view.SignedIn = true
					view.User = &sess.User
				}
				imp, err := e.Impersonation(cmd.Context())
				if err != nil {
					return err
				}
				if imp != nil {
					view.Impersonating = true
					view.OriginalUser = imp.OriginalUser
					view.EntityID = imp.ImpersonatedEntityID
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			})
		},
	}
}

func (a *app) evalCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "eval <path>",
		Short:   "Evaluate the route gate for a navigation",
		Example: "  gatectl eval /manager/reviews",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				ctx := goGate.WithNavigationID(cmd.Context(), "gatectl")
				d, err := e.Evaluate(ctx, args[0])
				if err != nil {
					return err
				}
				printDecision(cmd, d)
				return nil
			})
		},
	}
}

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <path>...",
		Short: "Print the access requirement of each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				for _, p := range args {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p, e.Classify(p).Describe(e.Roles()))
				}
				return nil
			})
		},
	}
}

func printDecision(cmd *cobra.Command, d goGate.Decision) {
	out := cmd.OutOrStdout()
	switch d.Kind {
	case goGate.DecisionRedirect:
		fmt.Fprintf(out, "redirect %s (%s)", d.Location(), d.Reason)
		if d.FullReload {
			fmt.Fprint(out, " full-reload")
		}
		fmt.Fprintln(out)
	default:
		fmt.Fprintf(out, "%s (%s)\n", d.Kind, d.Reason)
	}
}
