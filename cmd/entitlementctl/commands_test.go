package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/MrEthical07/goEntitle/license"
	"github.com/stretchr/testify/require"
)

const testSecret = "license-secret-0123456789-abcdefghi"

func env(secret string) func(string) string {
	return func(key string) string {
		if key == "LICENSE_SECRET" {
			return secret
		}
		return ""
	}
}

func run(t *testing.T, secret string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(env(secret))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func inspect(t *testing.T, token string) inspection {
	t.Helper()
	out, err := run(t, testSecret, "inspect", "--token", token, "--json")
	require.NoError(t, err)
	var got inspection
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	return got
}

func TestGenerateAndInspect(t *testing.T) {
	token, err := run(t, testSecret, "generate",
		"--tenant", "acme",
		"--issued-to", "Acme Ltd",
		"--tier", "Professional",
		"--days", "90",
		"--max-users", "8",
		"--enable", license.FeatureSSO,
		"--disable", license.FeatureEInvoicing,
	)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(token, "."))

	got := inspect(t, token)
	require.Equal(t, "acme", got.TenantID)
	require.Equal(t, "Acme Ltd", got.IssuedTo)
	require.Equal(t, license.TierProfessional, got.Tier)
	require.Equal(t, 90, got.DaysRemaining)
	require.Equal(t, 8, got.Limits.MaxUsers)
	require.Contains(t, got.Features, license.FeatureSSO)
	require.NotContains(t, got.Features, license.FeatureEInvoicing)
	require.NotEmpty(t, got.EntitlementID)
}

func TestInspectText(t *testing.T) {
	token, err := run(t, testSecret, "trial", "--tenant", "acme")
	require.NoError(t, err)

	out, err := run(t, testSecret, "inspect", "--token", token, "--tenant", "acme")
	require.NoError(t, err)
	require.Contains(t, out, "Basic")
	require.Contains(t, out, "30 days remaining (expiring soon)")
	require.Contains(t, out, "Upgrades:")

	_, err = run(t, testSecret, "inspect", "--token", token, "--tenant", "globex")
	require.ErrorIs(t, err, license.ErrTenantMismatch)
}

func TestTrialAndDemo(t *testing.T) {
	trial, err := run(t, testSecret, "trial", "--tenant", "acme")
	require.NoError(t, err)
	got := inspect(t, trial)
	require.Equal(t, license.TierBasic, got.Tier)
	require.Equal(t, license.TrialMaxUsers, got.Limits.MaxUsers)

	demo, err := run(t, testSecret, "demo", "--tenant", "acme")
	require.NoError(t, err)
	got = inspect(t, demo)
	require.Equal(t, license.TierProfessional, got.Tier)
	require.Equal(t, license.DemoDays, got.DaysRemaining)
}

func TestExtendAndUpgrade(t *testing.T) {
	token, err := run(t, testSecret, "generate", "--tenant", "acme", "--days", "10")
	require.NoError(t, err)

	extended, err := run(t, testSecret, "extend", "--token", token, "--days", "20")
	require.NoError(t, err)
	require.Equal(t, 30, inspect(t, extended).DaysRemaining)

	upgraded, err := run(t, testSecret, "upgrade", "--token", extended, "--tier", "enterprise")
	require.NoError(t, err)
	got := inspect(t, upgraded)
	require.Equal(t, license.TierEnterprise, got.Tier)
	require.Nil(t, got.Limits.MaxProducts)
	require.Empty(t, got.Suggestions)

	_, err = run(t, testSecret, "upgrade", "--token", upgraded, "--tier", "basic")
	require.ErrorIs(t, err, license.ErrInvalidOptions)
}

func TestRefusesForeignTokens(t *testing.T) {
	token, err := run(t, "another-secret-0123456789-abcdefghij", "generate", "--tenant", "acme")
	require.NoError(t, err)

	_, err = run(t, testSecret, "extend", "--token", token)
	require.ErrorIs(t, err, license.ErrLicenseTampered)

	_, err = run(t, testSecret, "inspect", "--token", token)
	require.ErrorIs(t, err, license.ErrLicenseTampered)
}

func TestMissingSecret(t *testing.T) {
	_, err := run(t, "", "trial", "--tenant", "acme")
	require.ErrorIs(t, err, errMissingSecret)

	_, err = run(t, "", "--secret", testSecret, "trial", "--tenant", "acme")
	require.NoError(t, err)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := run(t, testSecret, "generate", "--tenant", "acme", "--tier", "platinum")
	require.ErrorIs(t, err, license.ErrInvalidOptions)

	_, err = run(t, testSecret, "generate", "--tenant", "acme", "--enable", "teleport")
	require.ErrorIs(t, err, license.ErrInvalidOptions)

	_, err = run(t, testSecret, "generate")
	require.Error(t, err, "tenant is required")
}

func TestFeatures(t *testing.T) {
	out, err := run(t, "", "features")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, len(license.AllFeatures())+1)
	require.Contains(t, out, license.FeatureSSO)
	require.Contains(t, out, "Enterprise")
}
