package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/pool-backoffice/internal/persistence"
)

func customerCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage the customer directory",
	}
	cmd.AddCommand(customerAddCmd(load))
	return cmd
}

func customerAddCmd(load loader) *cobra.Command {
	var (
		phone   string
		email   string
		address string
		pools   []string
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a customer, optionally with a property and its pools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("customer name is required")
			}
			if len(pools) > 0 && strings.TrimSpace(address) == "" {
				return fmt.Errorf("--pool requires --address")
			}
			rt, err := load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			return withBackend(cmd.Context(), rt, func(b *backend) error {
				ctx := cmd.Context()
				now := time.Now().UTC()

				customer := persistence.Customer{
					ID:        uuid.NewString(),
					Name:      name,
					Phone:     strings.TrimSpace(phone),
					Email:     strings.TrimSpace(email),
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := b.directory.CreateCustomer(ctx, customer); err != nil {
					return fmt.Errorf("create customer: %w", err)
				}
				success(out, "customer %s: %s", customer.ID, customer.Name)

				if strings.TrimSpace(address) == "" {
					return nil
				}
				property := persistence.Property{
					ID:         uuid.NewString(),
					CustomerID: customer.ID,
					Address:    strings.TrimSpace(address),
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := b.directory.CreateProperty(ctx, property); err != nil {
					return fmt.Errorf("create property: %w", err)
				}
				success(out, "property %s: %s", property.ID, property.Address)

				for _, label := range pools {
					pool := persistence.Pool{
						ID:         uuid.NewString(),
						PropertyID: property.ID,
						Label:      strings.TrimSpace(label),
						CreatedAt:  now,
						UpdatedAt:  now,
					}
					if err := b.directory.CreatePool(ctx, pool); err != nil {
						return fmt.Errorf("create pool %q: %w", label, err)
					}
					success(out, "pool %s: %s", pool.ID, pool.Label)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&address, "address", "", "service address; creates a property")
	cmd.Flags().StringSliceVar(&pools, "pool", nil, "pool label at the address (repeatable)")
	return cmd
}
