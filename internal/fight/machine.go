// Package fight holds the client-side fight lifecycle: a closed state
// machine over the remote fight service, the betting window rules, and the
// once-only win effects that fire on terminal outcomes.
package fight

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cimai/fightbet/internal/domain"
	"github.com/cimai/fightbet/internal/odds"
	"github.com/cimai/fightbet/internal/orchestrator"
	"github.com/cimai/fightbet/internal/poll"
)

// event is a lifecycle trigger. Events come either from local operations or
// from observed remote state.
type event int

const (
	eventInitialize event = iota
	eventStart
	eventComplete
	eventFail
	eventReset
)

func (e event) String() string {
	switch e {
	case eventInitialize:
		return "initialize"
	case eventStart:
		return "start"
	case eventComplete:
		return "complete"
	case eventFail:
		return "fail"
	case eventReset:
		return "reset"
	}
	return "unknown"
}

// transition is the full legal transition table. Anything not listed is a
// rejected pair; states never advance implicitly.
func transition(cur domain.FightStatus, ev event) (domain.FightStatus, error) {
	switch ev {
	case eventInitialize:
		switch cur {
		case domain.StatusNoFight, domain.StatusCompleted, domain.StatusFailed:
			return domain.StatusBettingOpen, nil
		}
	case eventStart:
		if cur == domain.StatusBettingOpen {
			return domain.StatusInProgress, nil
		}
	case eventComplete:
		if cur == domain.StatusInProgress {
			return domain.StatusCompleted, nil
		}
	case eventFail:
		switch cur {
		case domain.StatusBettingOpen, domain.StatusInProgress:
			return domain.StatusFailed, nil
		}
	case eventReset:
		return domain.StatusNoFight, nil
	}
	return cur, fmt.Errorf("fight: illegal transition %s + %s", cur, ev)
}

// Service is the slice of the fight service client the machine uses.
type Service interface {
	Initialize(ctx context.Context) (domain.FightSession, error)
	Status(ctx context.Context, publicID string) (domain.FightSession, error)
	Start(ctx context.Context, publicID string, secureID uint64) (string, error)
}

// Submitter is the slice of the orchestrator the machine drives.
type Submitter interface {
	PlaceBet(ctx context.Context, p orchestrator.PlaceBetParams) (orchestrator.Receipt, error)
	CashOut(ctx context.Context, secureID uint64) (orchestrator.Receipt, error)
	MintForWin(ctx context.Context, secureID uint64) (orchestrator.Receipt, error)
}

// Limits bound a single bet. Zero MaxBet means unbounded above.
type Limits struct {
	MinBet uint64
	MaxBet uint64
}

const (
	defaultPollAttempts = 30
	defaultPollInterval = time.Second
)

// Options tune fight-state polling. Zero values use the defaults.
type Options struct {
	PollAttempts int
	PollInterval time.Duration
}

// Machine tracks one fight at a time for one wallet.
type Machine struct {
	svc    Service
	sub    Submitter
	engine *odds.Engine
	limits Limits
	log    *slog.Logger

	pollAttempts int
	pollInterval time.Duration

	initGroup singleflight.Group

	mu        sync.Mutex
	session   domain.FightSession
	side      domain.Side
	betPlaced bool
	betAmount uint64
	// mintDone keys by secure fight id: the mint effect fires at most once
	// per terminal outcome no matter how often the terminal state is
	// re-observed.
	mintDone map[uint64]bool
}

// NewMachine builds a Machine. The logger may be nil.
func NewMachine(svc Service, sub Submitter, engine *odds.Engine, limits Limits, log *slog.Logger, opts Options) *Machine {
	if log == nil {
		log = slog.Default()
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = defaultPollAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Machine{
		svc:          svc,
		sub:          sub,
		engine:       engine,
		limits:       limits,
		log:          log.With("component", "fight"),
		pollAttempts: opts.PollAttempts,
		pollInterval: opts.PollInterval,
		mintDone:     map[uint64]bool{},
	}
}

// Session returns a copy of the current fight session.
func (m *Machine) Session() domain.FightSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// InitializeFight opens a new fight for betting. Concurrent callers share a
// single service call; everyone observes the same new fight.
func (m *Machine) InitializeFight(ctx context.Context) (domain.FightSession, error) {
	const op = "initialize_fight"

	m.mu.Lock()
	if _, err := transition(m.session.Status, eventInitialize); err != nil {
		m.mu.Unlock()
		return domain.FightSession{}, domain.Validationf(op, "cannot initialize while fight is %s", m.session.Status)
	}
	m.mu.Unlock()

	v, err, _ := m.initGroup.Do("initialize", func() (any, error) {
		// A caller that raced past the state check after another flight
		// finished must observe that flight's fight, not create one.
		m.mu.Lock()
		if m.session.Status == domain.StatusBettingOpen && m.session.SecureID != 0 {
			session := m.session
			m.mu.Unlock()
			return session, nil
		}
		m.mu.Unlock()

		session, err := m.svc.Initialize(ctx)
		if err != nil {
			return nil, err
		}
		if session.SecureID == 0 {
			return nil, fmt.Errorf("fight: service returned no secure id")
		}

		session.Status = domain.StatusBettingOpen
		// The service may hand down per-fight bet bounds; the configured
		// limits are only the fallback when it does not.
		if session.Bets.MinBet == 0 {
			session.Bets.MinBet = m.limits.MinBet
		}
		if session.Bets.MaxBet == 0 {
			session.Bets.MaxBet = m.limits.MaxBet
		}

		m.mu.Lock()
		m.session = session
		m.side = ""
		m.betPlaced = false
		m.betAmount = 0
		m.mu.Unlock()

		m.log.Info("fight initialized",
			"public_id", session.PublicID,
			"secure_id", session.SecureID,
		)
		return session, nil
	})
	if err != nil {
		return domain.FightSession{}, fmt.Errorf("fight: %s: %w", op, err)
	}
	return v.(domain.FightSession), nil
}

// PlaceBet wagers on a side of the current fight. Exactly one bet per fight
// per session; amounts outside the fight's bet bounds are rejected, never
// clamped.
func (m *Machine) PlaceBet(ctx context.Context, side domain.Side, amount uint64, token domain.TokenType) (orchestrator.Receipt, error) {
	const op = "place_bet"

	m.mu.Lock()
	if m.session.Status != domain.StatusBettingOpen {
		status := m.session.Status
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "betting is not open (fight is %s)", status)
	}
	if m.betPlaced {
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "bet already placed for fight %d", m.session.SecureID)
	}
	if !side.Valid() {
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "unknown side %q", side)
	}
	if amount < m.session.Bets.MinBet {
		minBet := m.session.Bets.MinBet
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "bet %d below minimum %d", amount, minBet)
	}
	if m.session.Bets.MaxBet > 0 && amount > m.session.Bets.MaxBet {
		maxBet := m.session.Bets.MaxBet
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "bet %d above maximum %d", amount, maxBet)
	}
	secureID := m.session.SecureID
	pool := m.session.Bets.Pool()
	m.mu.Unlock()

	quote := m.engine.Quote(float64(amount), float64(pool))

	receipt, err := m.sub.PlaceBet(ctx, orchestrator.PlaceBetParams{
		SecureID:   secureID,
		Amount:     amount,
		Multiplier: quote.DisplayMultiplier,
		Token:      token,
	})
	if err != nil {
		return orchestrator.Receipt{}, err
	}

	m.mu.Lock()
	m.side = side
	m.betPlaced = true
	m.betAmount = amount
	switch side {
	case domain.SidePlayer1:
		m.session.Bets.Player1 += amount
	case domain.SidePlayer2:
		m.session.Bets.Player2 += amount
	}
	m.mu.Unlock()

	m.log.Info("bet recorded",
		"side", string(side),
		"amount", amount,
		"multiplier", quote.DisplayMultiplier,
	)
	return receipt, nil
}

// StartFight closes the betting window and launches the fight process. On
// failure the fight returns to BettingOpen; a start that did not happen
// must not strand the session half-started.
func (m *Machine) StartFight(ctx context.Context) error {
	const op = "start_fight"

	m.mu.Lock()
	next, err := transition(m.session.Status, eventStart)
	if err != nil {
		status := m.session.Status
		m.mu.Unlock()
		return domain.Validationf(op, "cannot start while fight is %s", status)
	}
	publicID := m.session.PublicID
	secureID := m.session.SecureID
	m.session.Status = next
	m.mu.Unlock()

	streamURL, err := m.svc.Start(ctx, publicID, secureID)
	if err != nil {
		m.mu.Lock()
		m.session.Status = domain.StatusBettingOpen
		m.mu.Unlock()
		return fmt.Errorf("fight: %s: %w", op, err)
	}

	m.mu.Lock()
	m.session.StreamURL = streamURL
	m.mu.Unlock()

	m.log.Info("fight started", "public_id", publicID, "stream_url", streamURL)
	return nil
}

// Advance fetches remote state once and folds it into the machine. Returns
// the updated session and whether the fight reached a terminal state.
func (m *Machine) Advance(ctx context.Context) (domain.FightSession, bool, error) {
	m.mu.Lock()
	publicID := m.session.PublicID
	m.mu.Unlock()
	if publicID == "" {
		return domain.FightSession{}, false, domain.Validationf("advance", "no active fight")
	}

	remote, err := m.svc.Status(ctx, publicID)
	if err != nil {
		return domain.FightSession{}, false, fmt.Errorf("fight: advance: %w", err)
	}
	session, terminal := m.applyRemote(ctx, remote)
	return session, terminal, nil
}

// RunPolling watches the fight until it reaches a terminal state or the
// polling budget runs out.
func (m *Machine) RunPolling(ctx context.Context) (domain.FightSession, error) {
	session, err := poll.Run(ctx, m.pollAttempts, m.pollInterval, func(ctx context.Context) poll.Step[domain.FightSession] {
		session, terminal, err := m.Advance(ctx)
		if err != nil {
			return poll.Fail[domain.FightSession](err)
		}
		if terminal {
			return poll.Terminal(session)
		}
		return poll.Continue[domain.FightSession]()
	})
	if err != nil {
		return domain.FightSession{}, err
	}
	return session, nil
}

// applyRemote folds a remote observation into local state, firing the
// win-mint effect when a completed fight names our side the winner.
func (m *Machine) applyRemote(ctx context.Context, remote domain.FightSession) (domain.FightSession, bool) {
	m.mu.Lock()

	m.session.Round = remote.Round
	if remote.StreamURL != "" {
		m.session.StreamURL = remote.StreamURL
	}
	if remote.Winner.Valid() {
		m.session.Winner = remote.Winner
	}

	var ev event
	var hasEvent bool
	switch remote.Status {
	case domain.StatusInProgress:
		ev, hasEvent = eventStart, m.session.Status == domain.StatusBettingOpen
	case domain.StatusCompleted:
		ev, hasEvent = eventComplete, m.session.Status == domain.StatusInProgress
	case domain.StatusFailed:
		ev, hasEvent = eventFail, m.session.Status == domain.StatusBettingOpen || m.session.Status == domain.StatusInProgress
	}
	if hasEvent {
		if next, err := transition(m.session.Status, ev); err == nil {
			m.session.Status = next
		}
	}

	session := m.session
	terminal := session.Status == domain.StatusCompleted || session.Status == domain.StatusFailed

	var mint bool
	var secureID uint64
	if session.Status == domain.StatusCompleted &&
		m.betPlaced &&
		session.Winner.Valid() &&
		session.Winner == m.side &&
		!m.mintDone[session.SecureID] {
		// Marked before the attempt: re-observing the terminal state must
		// not fire a second mint even if the first one errors.
		m.mintDone[session.SecureID] = true
		mint = true
		secureID = session.SecureID
	}
	m.mu.Unlock()

	if mint {
		if _, err := m.sub.MintForWin(ctx, secureID); err != nil {
			m.log.Error("mint for win failed", "secure_id", secureID, "err", err)
		} else {
			m.log.Info("win payout minted", "secure_id", secureID)
		}
	}
	return session, terminal
}

// CashOut pays out our bet after a won fight. Refused locally when the
// fight is not complete or the recorded side did not win.
func (m *Machine) CashOut(ctx context.Context) (orchestrator.Receipt, error) {
	const op = "cash_out"

	m.mu.Lock()
	if m.session.Status != domain.StatusCompleted {
		status := m.session.Status
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "fight is %s, not completed", status)
	}
	if !m.betPlaced {
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "no bet placed this session")
	}
	if !m.session.Winner.Valid() {
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "fight ended without a winner")
	}
	if m.session.Winner != m.side {
		winner := m.session.Winner
		m.mu.Unlock()
		return orchestrator.Receipt{}, domain.Validationf(op, "bet on %s but %s won", m.side, winner)
	}
	secureID := m.session.SecureID
	m.mu.Unlock()

	return m.sub.CashOut(ctx, secureID)
}

// EndFight clears the session so a new fight can be initialized.
func (m *Machine) EndFight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.FightSession{}
	m.side = ""
	m.betPlaced = false
	m.betAmount = 0
}
