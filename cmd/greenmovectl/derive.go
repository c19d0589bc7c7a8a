package main

import (
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/spf13/cobra"
)

type deriveOptions struct {
	*rootOptions
	Owner    string
	Property string
	Water    string
	Energy   string
}

type derivedAccount struct {
	Name    string          `json:"name"`
	Address address.Address `json:"address"`
	Bump    uint8           `json:"bump"`
}

func newDeriveCommand(root *rootOptions) *cobra.Command {
	opts := &deriveOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the account addresses of an owner",
		Long: `Print the program-derived account addresses of an owner.

The user data and reward accounts are always printed. Property and meter
accounts are added when --property (and --water / --energy) are given.

Example:
  greenmovectl derive --owner <base58> --property home-1 --water wm-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := deriveAccounts(opts)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), accounts)
			}
			for _, a := range accounts {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s (bump %d)\n", a.Name, a.Address, a.Bump)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner address (base58)")
	cmd.Flags().StringVar(&opts.Property, "property", "", "property id")
	cmd.Flags().StringVar(&opts.Water, "water", "", "water meter id")
	cmd.Flags().StringVar(&opts.Energy, "energy", "", "energy meter id")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func deriveAccounts(opts *deriveOptions) ([]derivedAccount, error) {
	d, err := opts.deriver()
	if err != nil {
		return nil, err
	}
	owner, err := address.Parse(opts.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid --owner: %w", err)
	}
	if opts.Property == "" && (opts.Water != "" || opts.Energy != "") {
		return nil, fmt.Errorf("meter ids require --property")
	}

	var out []derivedAccount
	add := func(name string, derived address.Derived, err error) error {
		if err != nil {
			return fmt.Errorf("derive %s: %w", name, err)
		}
		out = append(out, derivedAccount{Name: name, Address: derived.Address, Bump: derived.Bump})
		return nil
	}

	userData, err := d.UserData(owner)
	if err := add("user_data", userData, err); err != nil {
		return nil, err
	}
	reward, err := d.UserReward(owner)
	if err := add("user_reward", reward, err); err != nil {
		return nil, err
	}
	if opts.Property == "" {
		return out, nil
	}
	property, err := d.Property(owner, opts.Property)
	if err := add("property", property, err); err != nil {
		return nil, err
	}
	if opts.Water != "" {
		meter, err := d.WaterMeter(owner, opts.Property, opts.Water)
		if err := add("water_meter", meter, err); err != nil {
			return nil, err
		}
	}
	if opts.Energy != "" {
		meter, err := d.EnergyMeter(owner, opts.Property, opts.Energy)
		if err := add("energy_meter", meter, err); err != nil {
			return nil, err
		}
	}
	return out, nil
}
