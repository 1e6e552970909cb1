package app

import (
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"

	"github.com/cimai/fightbet/internal/chain"
	"github.com/cimai/fightbet/internal/chain/pda"
	"github.com/cimai/fightbet/internal/config"
	"github.com/cimai/fightbet/internal/crypto"
	"github.com/cimai/fightbet/internal/fight"
	"github.com/cimai/fightbet/internal/fightsvc"
	"github.com/cimai/fightbet/internal/odds"
	"github.com/cimai/fightbet/internal/orchestrator"
	"github.com/cimai/fightbet/internal/reconcile"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Signer       *crypto.LocalSigner
	Ledger       chain.Ledger
	Deriver      *pda.Deriver
	Engine       *odds.Engine
	Reconciler   *reconcile.Reconciler
	FightClient  *fightsvc.Client
	Orchestrator *orchestrator.Orchestrator
	Machine      *fight.Machine
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Wallet key and signer ---
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		KeygenFilePath:   cfg.Wallet.KeygenFilePath,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: load wallet key: %w", err)
	}
	signer, err := crypto.NewLocalSigner(key)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: create signer: %w", err)
	}

	// --- Chain addresses ---
	program, err := solana.PublicKeyFromBase58(cfg.Chain.ProgramID)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: parse program_id: %w", err)
	}
	var authority solana.PublicKey
	if cfg.Chain.Authority != "" {
		authority, err = solana.PublicKeyFromBase58(cfg.Chain.Authority)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: parse authority: %w", err)
		}
	}
	var raprMint solana.PublicKey
	if cfg.Chain.RaprMint != "" {
		raprMint, err = solana.PublicKeyFromBase58(cfg.Chain.RaprMint)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: parse rapr_mint: %w", err)
		}
	}

	deps := &Dependencies{Signer: signer}

	// --- Ledger, deriver, odds, reconciler ---
	deps.Ledger = chain.NewRPCClient(cfg.Chain.RPCEndpoint, logger)
	deps.Deriver = pda.NewDeriver(program)
	deps.Engine = odds.NewEngine(odds.Config{
		Base:      cfg.Betting.BaseOdds,
		MinOdds:   cfg.Betting.MinOdds,
		MaxOdds:   cfg.Betting.MaxOdds,
		HouseEdge: float64(cfg.Betting.HouseFeeBps) / 10_000,
	})
	deps.Reconciler = reconcile.New(signer.PublicKey(), deps.Deriver, deps.Ledger, logger)

	// --- Fight service client ---
	var session *fightsvc.Session
	if cfg.FightSvc.APIToken != "" {
		session = fightsvc.NewStaticSession(cfg.FightSvc.APIToken)
	}
	var limiter *rate.Limiter
	if cfg.FightSvc.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.FightSvc.RatePerSec), cfg.FightSvc.RateBurst)
	}
	deps.FightClient = fightsvc.NewClient(cfg.FightSvc.BaseURL, session, limiter)

	// --- Orchestrator and fight machine ---
	deps.Orchestrator = orchestrator.New(
		deps.Ledger,
		signer,
		deps.Deriver,
		deps.Engine,
		deps.Reconciler,
		authority,
		raprMint,
		logger,
		orchestrator.Options{
			ConfirmAttempts: cfg.Chain.ConfirmAttempts,
			ConfirmInterval: cfg.Chain.ConfirmInterval.Duration,
		},
	)
	deps.Machine = fight.NewMachine(
		deps.FightClient,
		deps.Orchestrator,
		deps.Engine,
		fight.Limits{MinBet: cfg.Betting.MinBet, MaxBet: cfg.Betting.MaxBet},
		logger,
		fight.Options{
			PollAttempts: cfg.FightSvc.PollAttempts,
			PollInterval: cfg.FightSvc.PollInterval.Duration,
		},
	)

	return deps, cleanup, nil
}
