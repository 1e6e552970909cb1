// Package config defines the top-level configuration for the fightbet
// client and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FIGHTBET_* environment
// variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	FightSvc FightSvcConfig `toml:"fight_service"`
	Betting  BettingConfig  `toml:"betting"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the bettor's key material.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	KeygenFilePath   string `toml:"keygen_file_path"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds RPC endpoint and program addresses.
type ChainConfig struct {
	RPCEndpoint     string   `toml:"rpc_endpoint"`
	ProgramID       string   `toml:"program_id"`
	RaprMint        string   `toml:"rapr_mint"`
	Authority       string   `toml:"authority"`
	ConfirmAttempts int      `toml:"confirm_attempts"`
	ConfirmInterval duration `toml:"confirm_interval"`
}

// FightSvcConfig holds the off-chain fight service parameters.
type FightSvcConfig struct {
	BaseURL      string   `toml:"base_url"`
	APIToken     string   `toml:"api_token"`
	RatePerSec   float64  `toml:"rate_per_sec"`
	RateBurst    int      `toml:"rate_burst"`
	PollAttempts int      `toml:"poll_attempts"`
	PollInterval duration `toml:"poll_interval"`
}

// BettingConfig holds the local betting rules.
type BettingConfig struct {
	MinBet       uint64  `toml:"min_bet"`
	MaxBet       uint64  `toml:"max_bet"`
	BaseOdds     float64 `toml:"base_odds"`
	MinOdds      float64 `toml:"min_odds"`
	MaxOdds      float64 `toml:"max_odds"`
	HouseFeeBps  uint32  `toml:"house_fee_bps"`
	Side         string  `toml:"side"`
	Amount       uint64  `toml:"amount"`
	Token        string  `toml:"token"`
	AutoCashOut  bool    `toml:"auto_cash_out"`
	DepositFirst uint64  `toml:"deposit_first"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCEndpoint:     "https://api.devnet.solana.com",
			ProgramID:       "5FwvYgAChMwMsBrmSKBBZeWRGX27p62G3o3UsBQjhVJZ",
			ConfirmAttempts: 3,
			ConfirmInterval: duration{time.Second},
		},
		FightSvc: FightSvcConfig{
			BaseURL:      "http://localhost:3000/api",
			RatePerSec:   5,
			RateBurst:    10,
			PollAttempts: 30,
			PollInterval: duration{time.Second},
		},
		Betting: BettingConfig{
			MinBet:      100,
			MaxBet:      5_000_000_000,
			BaseOdds:    2.0,
			MinOdds:     1.1,
			MaxOdds:     2.0,
			HouseFeeBps: 250,
			Side:        "player1",
			Token:       "dumbs",
		},
		Mode:     "balances",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"balances": true,
	"session":  true,
	"deposit":  true,
	"swap":     true,
	"withdraw": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validSides enumerates the accepted values for Betting.Side.
var validSides = map[string]bool{
	"player1": true,
	"player2": true,
}

// validTokens enumerates the accepted values for Betting.Token.
var validTokens = map[string]bool{
	"dumbs": true,
	"rapr":  true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: balances, session, deposit, swap, withdraw)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — at least one key source must be specified.
	if c.Wallet.PrivateKey == "" && c.Wallet.KeygenFilePath == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: one of private_key, keygen_file_path or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Chain
	if c.Chain.RPCEndpoint == "" {
		errs = append(errs, "chain: rpc_endpoint must not be empty")
	}
	if _, err := solana.PublicKeyFromBase58(c.Chain.ProgramID); err != nil {
		errs = append(errs, fmt.Sprintf("chain: program_id %q is not a valid address", c.Chain.ProgramID))
	}
	if c.Chain.RaprMint != "" {
		if _, err := solana.PublicKeyFromBase58(c.Chain.RaprMint); err != nil {
			errs = append(errs, fmt.Sprintf("chain: rapr_mint %q is not a valid address", c.Chain.RaprMint))
		}
	}
	if c.Chain.Authority != "" {
		if _, err := solana.PublicKeyFromBase58(c.Chain.Authority); err != nil {
			errs = append(errs, fmt.Sprintf("chain: authority %q is not a valid address", c.Chain.Authority))
		}
	}
	if c.Chain.ConfirmAttempts < 1 {
		errs = append(errs, "chain: confirm_attempts must be >= 1")
	}
	if c.Chain.ConfirmInterval.Duration <= 0 {
		errs = append(errs, "chain: confirm_interval must be positive")
	}

	// Fight service
	if c.FightSvc.BaseURL == "" {
		errs = append(errs, "fight_service: base_url must not be empty")
	}
	if c.FightSvc.RatePerSec <= 0 {
		errs = append(errs, "fight_service: rate_per_sec must be > 0")
	}
	if c.FightSvc.RateBurst < 1 {
		errs = append(errs, "fight_service: rate_burst must be >= 1")
	}
	if c.FightSvc.PollAttempts < 1 {
		errs = append(errs, "fight_service: poll_attempts must be >= 1")
	}
	if c.FightSvc.PollInterval.Duration <= 0 {
		errs = append(errs, "fight_service: poll_interval must be positive")
	}

	// Betting
	if c.Betting.MaxBet > 0 && c.Betting.MinBet > c.Betting.MaxBet {
		errs = append(errs, "betting: min_bet must not exceed max_bet")
	}
	if c.Betting.MinOdds < 1 {
		errs = append(errs, "betting: min_odds must be >= 1")
	}
	if c.Betting.MaxOdds < c.Betting.MinOdds {
		errs = append(errs, "betting: max_odds must be >= min_odds")
	}
	if c.Betting.HouseFeeBps >= 10_000 {
		errs = append(errs, "betting: house_fee_bps must be below 10000")
	}
	if !validSides[c.Betting.Side] {
		errs = append(errs, fmt.Sprintf("betting: unknown side %q (valid: player1, player2)", c.Betting.Side))
	}
	if !validTokens[strings.ToLower(c.Betting.Token)] {
		errs = append(errs, fmt.Sprintf("betting: unknown token %q (valid: dumbs, rapr)", c.Betting.Token))
	}
	if c.Mode == "session" && c.Betting.Amount == 0 {
		errs = append(errs, "betting: amount must be set for session mode")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
