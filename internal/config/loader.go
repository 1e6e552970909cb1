package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FIGHTBET_* environment variable overrides, and
// returns the final Config. An empty path skips the file step so the tool can
// run on defaults plus environment alone. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FIGHTBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "FIGHTBET_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.KeygenFilePath, "FIGHTBET_WALLET_KEYGEN_FILE_PATH")
	setStr(&cfg.Wallet.EncryptedKeyPath, "FIGHTBET_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "FIGHTBET_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCEndpoint, "FIGHTBET_CHAIN_RPC_ENDPOINT")
	setStr(&cfg.Chain.ProgramID, "FIGHTBET_CHAIN_PROGRAM_ID")
	setStr(&cfg.Chain.RaprMint, "FIGHTBET_CHAIN_RAPR_MINT")
	setStr(&cfg.Chain.Authority, "FIGHTBET_CHAIN_AUTHORITY")
	setInt(&cfg.Chain.ConfirmAttempts, "FIGHTBET_CHAIN_CONFIRM_ATTEMPTS")
	setDuration(&cfg.Chain.ConfirmInterval, "FIGHTBET_CHAIN_CONFIRM_INTERVAL")

	// ── Fight service ──
	setStr(&cfg.FightSvc.BaseURL, "FIGHTBET_FIGHT_SERVICE_BASE_URL")
	setStr(&cfg.FightSvc.APIToken, "FIGHTBET_FIGHT_SERVICE_API_TOKEN")
	setFloat64(&cfg.FightSvc.RatePerSec, "FIGHTBET_FIGHT_SERVICE_RATE_PER_SEC")
	setInt(&cfg.FightSvc.RateBurst, "FIGHTBET_FIGHT_SERVICE_RATE_BURST")
	setInt(&cfg.FightSvc.PollAttempts, "FIGHTBET_FIGHT_SERVICE_POLL_ATTEMPTS")
	setDuration(&cfg.FightSvc.PollInterval, "FIGHTBET_FIGHT_SERVICE_POLL_INTERVAL")

	// ── Betting ──
	setUint64(&cfg.Betting.MinBet, "FIGHTBET_BETTING_MIN_BET")
	setUint64(&cfg.Betting.MaxBet, "FIGHTBET_BETTING_MAX_BET")
	setFloat64(&cfg.Betting.BaseOdds, "FIGHTBET_BETTING_BASE_ODDS")
	setFloat64(&cfg.Betting.MinOdds, "FIGHTBET_BETTING_MIN_ODDS")
	setFloat64(&cfg.Betting.MaxOdds, "FIGHTBET_BETTING_MAX_ODDS")
	setStr(&cfg.Betting.Side, "FIGHTBET_BETTING_SIDE")
	setUint64(&cfg.Betting.Amount, "FIGHTBET_BETTING_AMOUNT")
	setStr(&cfg.Betting.Token, "FIGHTBET_BETTING_TOKEN")
	setBool(&cfg.Betting.AutoCashOut, "FIGHTBET_BETTING_AUTO_CASH_OUT")
	setUint64(&cfg.Betting.DepositFirst, "FIGHTBET_BETTING_DEPOSIT_FIRST")

	// ── Top-level ──
	setStr(&cfg.Mode, "FIGHTBET_MODE")
	setStr(&cfg.LogLevel, "FIGHTBET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
