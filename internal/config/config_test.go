package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "4rQanLxTFvdgtLsGirzQEqxDjEvtc6oNLbah7ouvNLyDuTYGSQh7jBLuBDXhLLxeXkbbPNGPQzsyuZMJNV7Kqnub"
	return cfg
}

func TestDefaultsValidateWithWallet(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresKeySource(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.EncryptedKeyPath = "/keys/wallet.enc.json"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRejectsBadProgramID(t *testing.T) {
	cfg := validConfig()
	cfg.Chain.ProgramID = "not-an-address"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program_id")
}

func TestValidateRejectsInvertedBetBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Betting.MinBet = 1000
	cfg.Betting.MaxBet = 100
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_bet")
}

func TestValidateSessionModeNeedsAmount(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "session"
	cfg.Betting.Amount = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Chain.RPCEndpoint = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "rpc_endpoint")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "session"
log_level = "debug"

[wallet]
private_key = "4rQanLxTFvdgtLsGirzQEqxDjEvtc6oNLbah7ouvNLyDuTYGSQh7jBLuBDXhLLxeXkbbPNGPQzsyuZMJNV7Kqnub"

[chain]
confirm_interval = "2s"

[betting]
amount = 5000
side = "player2"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "session", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Chain.ConfirmInterval.Duration)
	assert.Equal(t, uint64(5000), cfg.Betting.Amount)
	assert.Equal(t, "player2", cfg.Betting.Side)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, cfg.Chain.ConfirmAttempts)
	assert.Equal(t, 30, cfg.FightSvc.PollAttempts)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FIGHTBET_MODE", "deposit")
	t.Setenv("FIGHTBET_BETTING_AMOUNT", "12345")
	t.Setenv("FIGHTBET_CHAIN_CONFIRM_INTERVAL", "250ms")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "deposit", cfg.Mode)
	assert.Equal(t, uint64(12345), cfg.Betting.Amount)
	assert.Equal(t, 250*time.Millisecond, cfg.Chain.ConfirmInterval.Duration)
}

func TestEnvOverrideIgnoresEmpty(t *testing.T) {
	t.Setenv("FIGHTBET_MODE", "")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	assert.Equal(t, "balances", cfg.Mode)
}
