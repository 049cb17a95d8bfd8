package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/pool-backoffice/internal/application"
)

func adminCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage back-office accounts",
	}
	cmd.AddCommand(adminCreateCmd(load))
	return cmd
}

func adminCreateCmd(load loader) *cobra.Command {
	var (
		fullName string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create [email]",
		Short: "Create an admin account",
		Long: `Create an admin account. The password is read from
BACKOFFICE_ADMIN_PASSWORD and must be at least 12 characters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("BACKOFFICE_ADMIN_PASSWORD")
			if password == "" {
				return fmt.Errorf("BACKOFFICE_ADMIN_PASSWORD is not set")
			}
			rt, err := load(cmd)
			if err != nil {
				return err
			}

			return withBackend(cmd.Context(), rt, func(b *backend) error {
				admin, err := newServices(b, rt.cfg, rt.logger).admins.CreateAdmin(cmd.Context(), application.AdminInput{
					Email:    args[0],
					FullName: fullName,
					Role:     role,
					Password: password,
				})
				if err != nil {
					return describeError(err)
				}
				success(cmd.OutOrStdout(), "created %s %s (%s)", admin.Role, admin.Email, admin.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fullName, "name", "", "full name (required)")
	cmd.Flags().StringVar(&role, "role", application.RoleAdmin, "admin or staff")
	return cmd
}

// describeError renders field errors one per line for terminal output.
func describeError(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	lines := make([]string, 0, len(vErr.FieldErrors))
	for field, message := range vErr.FieldErrors {
		lines = append(lines, fmt.Sprintf("  %s: %s", field, message))
	}
	sort.Strings(lines)
	return fmt.Errorf("invalid input:\n%s", strings.Join(lines, "\n"))
}
