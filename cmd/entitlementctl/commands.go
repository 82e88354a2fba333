package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newGenerateCmd(g *globals) *cobra.Command {
	var (
		id, tenant, issuedTo, tier  string
		days, maxUsers, maxProducts int
		enable, disable             []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Sign an entitlement for a tenant",
		Example: `  entitlementctl generate --tenant acme --tier professional --days 365
  entitlementctl generate --tenant acme --tier basic --enable apiAccess --max-users 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := license.ParseTier(tier)
			if err != nil {
				return err
			}
			features, err := featureOverrides(enable, disable)
			if err != nil {
				return err
			}
			gen, err := g.generator()
			if err != nil {
				return err
			}

			opts := license.Options{
				EntitlementID: id,
				TenantID:      tenant,
				IssuedTo:      issuedTo,
				Tier:          t,
				DurationDays:  days,
				Features:      features,
			}
			if opts.EntitlementID == "" {
				opts.EntitlementID = g.newID()
			}
			if cmd.Flags().Changed("max-users") {
				opts.MaxUsers = license.Int(maxUsers)
			}
			if cmd.Flags().Changed("max-products") {
				opts.MaxProducts = license.Int(maxProducts)
			}

			token, err := gen.Generate(opts)
			if err != nil {
				return err
			}
			log.Debug().Str("tenant_id", tenant).Str("tier", string(t)).Int("days", days).Msg("entitlement generated")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&id, "id", "", "entitlement id (random when empty)")
	f.StringVar(&tenant, "tenant", "", "tenant id")
	f.StringVar(&issuedTo, "issued-to", "", "licensee name")
	f.StringVar(&tier, "tier", string(license.TierBasic), "basic, professional or enterprise")
	f.IntVar(&days, "days", 365, "validity in days")
	f.IntVar(&maxUsers, "max-users", 0, "override the tier's user limit")
	f.IntVar(&maxProducts, "max-products", 0, "override the tier's product limit")
	f.StringSliceVar(&enable, "enable", nil, "features to enable beyond the tier")
	f.StringSliceVar(&disable, "disable", nil, "tier features to switch off")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newTrialCmd(g *globals) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "trial",
		Short: fmt.Sprintf("Sign a %d-day basic trial", license.TrialDays),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := g.generator()
			if err != nil {
				return err
			}
			token, err := gen.GenerateTrial(g.newID(), tenant)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newDemoCmd(g *globals) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: fmt.Sprintf("Sign a %d-day professional demo", license.DemoDays),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := g.generator()
			if err != nil {
				return err
			}
			token, err := gen.GenerateDemo(g.newID(), tenant)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newExtendCmd(g *globals) *cobra.Command {
	var (
		token string
		days  int
	)
	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Push an entitlement's expiry back",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSignature(g, token); err != nil {
				return err
			}
			gen, err := g.generator()
			if err != nil {
				return err
			}
			next, err := gen.Extend(token, days)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), next)
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "entitlement token")
	cmd.Flags().IntVar(&days, "days", 30, "days to add")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newUpgradeCmd(g *globals) *cobra.Command {
	var (
		token, tier           string
		days, users, products int
	)
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Move an entitlement to a higher tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := license.ParseTier(tier)
			if err != nil {
				return err
			}
			if err := checkSignature(g, token); err != nil {
				return err
			}
			gen, err := g.generator()
			if err != nil {
				return err
			}

			opts := license.UpgradeOptions{AdditionalDays: days}
			if cmd.Flags().Changed("max-users") {
				opts.MaxUsers = license.Int(users)
			}
			if cmd.Flags().Changed("max-products") {
				opts.MaxProducts = license.Int(products)
			}
			next, err := gen.Upgrade(token, t, opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), next)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&token, "token", "", "entitlement token")
	f.StringVar(&tier, "tier", "", "target tier")
	f.IntVar(&days, "days", 0, "days to add")
	f.IntVar(&users, "max-users", 0, "explicit user limit")
	f.IntVar(&products, "max-products", 0, "explicit product limit")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}

// inspection is the JSON form of the inspect command.
type inspection struct {
	EntitlementID  string             `json:"entitlement_id"`
	TenantID       string             `json:"tenant_id"`
	IssuedTo       string             `json:"issued_to,omitempty"`
	Tier           license.Tier       `json:"tier"`
	Features       []string           `json:"features"`
	Limits         license.Limits     `json:"limits"`
	IssuedAt       string             `json:"issued_at"`
	ExpiresAt      string             `json:"expires_at"`
	DaysRemaining  int                `json:"days_remaining"`
	IsExpired      bool               `json:"is_expired"`
	IsExpiringSoon bool               `json:"is_expiring_soon"`
	Suggestions    []guard.Suggestion `json:"suggestions,omitempty"`
}

func newInspectCmd(g *globals) *cobra.Command {
	var (
		token, tenant string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Verify an entitlement and show what it grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := g.validator()
			if err != nil {
				return err
			}
			ve, err := v.Validate(token, tenant)
			if err != nil {
				// Expired grants are still worth showing.
				var verr *license.ValidationError
				if !errors.As(err, &verr) || verr.Entitlement == nil {
					return err
				}
				ve = verr.Entitlement
				log.Warn().Err(err).Msg("entitlement is not currently valid")
			}

			out := inspection{
				EntitlementID:  ve.EntitlementID,
				TenantID:       ve.TenantID,
				IssuedTo:       ve.IssuedTo,
				Tier:           ve.Tier,
				Features:       ve.EnabledFeatures(),
				Limits:         ve.Limits,
				IssuedAt:       ve.IssuedAt.UTC().Format("2006-01-02"),
				ExpiresAt:      ve.ExpiresAt.UTC().Format("2006-01-02"),
				DaysRemaining:  ve.DaysRemaining,
				IsExpired:      ve.IsExpired,
				IsExpiringSoon: ve.IsExpiringSoon,
				Suggestions:    guard.Suggestions(ve),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printInspection(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "entitlement token")
	cmd.Flags().StringVar(&tenant, "tenant", "", "require this tenant")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "List every feature and the tier that first includes it",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tTIER")
			for _, f := range license.AllFeatures() {
				fmt.Fprintf(w, "%s\t%s\n", f, license.RequiredTier(f).DisplayName())
			}
			return w.Flush()
		},
	}
}

func printInspection(out io.Writer, in inspection) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Entitlement\t%s\n", in.EntitlementID)
	fmt.Fprintf(w, "Tenant\t%s\n", in.TenantID)
	if in.IssuedTo != "" {
		fmt.Fprintf(w, "Issued to\t%s\n", in.IssuedTo)
	}
	fmt.Fprintf(w, "Tier\t%s\n", in.Tier.DisplayName())
	fmt.Fprintf(w, "Valid\t%s to %s\n", in.IssuedAt, in.ExpiresAt)

	status := fmt.Sprintf("%d days remaining", in.DaysRemaining)
	switch {
	case in.IsExpired:
		status = "expired"
	case in.IsExpiringSoon:
		status += " (expiring soon)"
	}
	fmt.Fprintf(w, "Status\t%s\n", status)

	fmt.Fprintf(w, "Users\t%d\n", in.Limits.MaxUsers)
	products := "unlimited"
	if in.Limits.MaxProducts != nil {
		products = fmt.Sprint(*in.Limits.MaxProducts)
	}
	fmt.Fprintf(w, "Products\t%s\n", products)
	fmt.Fprintf(w, "Features\t%s\n", strings.Join(in.Features, ", "))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(in.Suggestions) > 0 {
		fmt.Fprintln(out, "\nUpgrades:")
		for _, s := range in.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s.Message)
		}
	}
	return nil
}

// checkSignature refuses to re-sign tokens this key did not issue. Expired
// tokens are accepted.
func checkSignature(g *globals, token string) error {
	v, err := g.validator()
	if err != nil {
		return err
	}
	_, err = v.Validate(token, "")
	if err == nil || errors.Is(err, license.ErrLicenseExpired) {
		return nil
	}
	return err
}

func featureOverrides(enable, disable []string) (map[string]bool, error) {
	if len(enable) == 0 && len(disable) == 0 {
		return nil, nil
	}
	out := make(map[string]bool, len(enable)+len(disable))
	for _, f := range enable {
		if !license.KnownFeature(f) {
			return nil, fmt.Errorf("%w: unknown feature %q", license.ErrInvalidOptions, f)
		}
		out[f] = true
	}
	for _, f := range disable {
		if !license.KnownFeature(f) {
			return nil, fmt.Errorf("%w: unknown feature %q", license.ErrInvalidOptions, f)
		}
		out[f] = false
	}
	return out, nil
}
