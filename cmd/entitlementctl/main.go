// Command entitlementctl issues and inspects entitlement tokens offline.
//
// Tokens are signed with LICENSE_SECRET (or --secret). Nothing here talks to
// Redis; publish tokens through the engine.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}
