package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cimai/fightbet/internal/domain"
)

// BalancesMode reads the reconciled balance picture once and logs it.
func (a *App) BalancesMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting balances mode",
		slog.String("wallet", deps.Reconciler.Wallet().String()),
	)

	native, err := deps.Reconciler.NativeBalance(ctx)
	if err != nil {
		return fmt.Errorf("balances mode: native balance: %w", err)
	}
	view, err := deps.Reconciler.Refresh(ctx, 0)
	if err != nil {
		return fmt.Errorf("balances mode: refresh: %w", err)
	}

	a.logger.InfoContext(ctx, "balances",
		slog.Uint64("native_lamports", native),
		slog.Uint64("free", view.Free),
		slog.Uint64("locked", view.Locked),
		slog.Uint64("total", view.Total),
	)
	return nil
}

// SessionMode runs one full fight session: optional deposit, fight
// initialization, bet placement, fight start, polling to a terminal state,
// and optional cash out.
func (a *App) SessionMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting session mode",
		slog.String("side", a.cfg.Betting.Side),
		slog.Uint64("amount", a.cfg.Betting.Amount),
		slog.String("token", a.cfg.Betting.Token),
	)

	side := domain.Side(a.cfg.Betting.Side)
	token := domain.TokenDUMBS
	if strings.EqualFold(a.cfg.Betting.Token, "rapr") {
		token = domain.TokenRAPR
	}

	if a.cfg.Betting.DepositFirst > 0 {
		rcpt, err := deps.Orchestrator.Deposit(ctx, a.cfg.Betting.DepositFirst)
		if err != nil {
			return fmt.Errorf("session mode: deposit: %w", err)
		}
		a.logger.InfoContext(ctx, "deposit confirmed",
			slog.String("signature", rcpt.Signature.String()),
			slog.Uint64("free", rcpt.Balances.Free),
		)
	}

	session, err := deps.Machine.InitializeFight(ctx)
	if err != nil {
		return fmt.Errorf("session mode: initialize fight: %w", err)
	}
	a.logger.InfoContext(ctx, "fight initialized",
		slog.String("fight_id", session.PublicID),
		slog.Uint64("secure_id", session.SecureID),
	)

	rcpt, err := deps.Machine.PlaceBet(ctx, side, a.cfg.Betting.Amount, token)
	if err != nil {
		return fmt.Errorf("session mode: place bet: %w", err)
	}
	a.logger.InfoContext(ctx, "bet confirmed",
		slog.String("signature", rcpt.Signature.String()),
		slog.Uint64("locked", rcpt.Balances.Locked),
	)

	if err := deps.Machine.StartFight(ctx); err != nil {
		return fmt.Errorf("session mode: start fight: %w", err)
	}
	if s := deps.Machine.Session(); s.StreamURL != "" {
		a.logger.InfoContext(ctx, "fight started", slog.String("stream_url", s.StreamURL))
	}

	final, err := deps.Machine.RunPolling(ctx)
	if err != nil {
		return fmt.Errorf("session mode: poll fight: %w", err)
	}
	a.logger.InfoContext(ctx, "fight finished",
		slog.String("status", final.Status.String()),
		slog.String("winner", string(final.Winner)),
	)

	if a.cfg.Betting.AutoCashOut && final.Status == domain.StatusCompleted {
		if final.Winner != side {
			a.logger.InfoContext(ctx, "bet lost, nothing to cash out")
		} else {
			rcpt, err := deps.Machine.CashOut(ctx)
			if err != nil {
				return fmt.Errorf("session mode: cash out: %w", err)
			}
			a.logger.InfoContext(ctx, "cash out confirmed",
				slog.String("signature", rcpt.Signature.String()),
				slog.Uint64("free", rcpt.Balances.Free),
			)
		}
	}

	deps.Machine.EndFight()
	return nil
}

// DepositMode converts the configured lamport amount into DUMBS and exits.
func (a *App) DepositMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting deposit mode", slog.Uint64("lamports", a.cfg.Betting.Amount))

	rcpt, err := deps.Orchestrator.Deposit(ctx, a.cfg.Betting.Amount)
	if err != nil {
		return fmt.Errorf("deposit mode: %w", err)
	}
	a.logger.InfoContext(ctx, "deposit confirmed",
		slog.String("signature", rcpt.Signature.String()),
		slog.Uint64("free", rcpt.Balances.Free),
	)
	return nil
}

// SwapMode swaps the configured lamport amount for RAPR and exits.
func (a *App) SwapMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting swap mode", slog.Uint64("lamports", a.cfg.Betting.Amount))

	rcpt, err := deps.Orchestrator.Swap(ctx, a.cfg.Betting.Amount)
	if err != nil {
		return fmt.Errorf("swap mode: %w", err)
	}
	a.logger.InfoContext(ctx, "swap confirmed",
		slog.String("signature", rcpt.Signature.String()),
	)
	return nil
}

// WithdrawMode withdraws the configured lamport amount back to native SOL.
func (a *App) WithdrawMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting withdraw mode", slog.Uint64("lamports", a.cfg.Betting.Amount))

	rcpt, err := deps.Orchestrator.WithdrawSol(ctx, a.cfg.Betting.Amount)
	if err != nil {
		return fmt.Errorf("withdraw mode: %w", err)
	}
	a.logger.InfoContext(ctx, "withdraw confirmed",
		slog.String("signature", rcpt.Signature.String()),
		slog.Uint64("free", rcpt.Balances.Free),
	)
	return nil
}
