package main

import (
	"errors"
	"time"

	"github.com/MrEthical07/goEntitle/license"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errMissingSecret = errors.New("license secret is required (set LICENSE_SECRET or --secret)")

// globals holds the flags shared by every subcommand.
type globals struct {
	secret  string
	issuer  string
	verbose bool
	now     func() time.Time
	newID   func() string
}

func (g *globals) options() []license.Option {
	opts := []license.Option{license.WithClock(g.now)}
	if g.issuer != "" {
		opts = append(opts, license.WithIssuer(g.issuer))
	}
	return opts
}

func (g *globals) generator() (*license.Generator, error) {
	if g.secret == "" {
		return nil, errMissingSecret
	}
	return license.NewGenerator([]byte(g.secret), g.options()...)
}

func (g *globals) validator() (*license.Validator, error) {
	if g.secret == "" {
		return nil, errMissingSecret
	}
	return license.NewValidator([]byte(g.secret), g.options()...)
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	g := &globals{now: time.Now, newID: uuid.NewString}

	root := &cobra.Command{
		Use:           "entitlementctl",
		Short:         "Issue and inspect tenant entitlement tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if g.verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}

	root.PersistentFlags().StringVar(&g.secret, "secret", getenv("LICENSE_SECRET"), "HMAC signing secret")
	root.PersistentFlags().StringVar(&g.issuer, "issuer", getenv("LICENSE_ISSUER"), "issuer to sign and require")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newGenerateCmd(g),
		newTrialCmd(g),
		newDemoCmd(g),
		newExtendCmd(g),
		newUpgradeCmd(g),
		newInspectCmd(g),
		newFeaturesCmd(),
	)
	return root
}
