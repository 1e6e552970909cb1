// Package fightsvc is the HTTP client for the off-chain fight service,
// which owns fight identities, betting windows and round state.
package fightsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cimai/fightbet/internal/domain"
)

// Client talks to the fight service's action endpoint. Fights are mutated
// by POSTing an action envelope and read back via GET.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	session    *Session
}

// NewClient creates a fight service client.
//
// baseURL is the service root, e.g. "https://fights.example.com/api".
// The limiter caps request rate against the shared service; pass nil to use
// the default of 5 req/s with a burst of 10.
func NewClient(baseURL string, session *Session, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(5), 10)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		session: session,
	}
}

// actionRequest is the envelope the fight-process endpoint consumes.
type actionRequest struct {
	Action   string `json:"action"`
	FightID  string `json:"fightId,omitempty"`
	SecureID string `json:"secureId,omitempty"`
}

// apiFight is the wire representation of a fight.
type apiFight struct {
	FightID  string `json:"fightid"`
	SecureID string `json:"secureId"`
	Status   string `json:"status"`
	Bets     struct {
		Player1 uint64 `json:"player1"`
		Player2 uint64 `json:"player2"`
	} `json:"bets"`
	CurrentState *struct {
		Round     int   `json:"round"`
		P1Health  int   `json:"p1_health"`
		P2Health  int   `json:"p2_health"`
		Timestamp int64 `json:"timestamp"`
	} `json:"currentState"`
	StreamURL string `json:"streamUrl"`
	Winner    string `json:"winner"`
}

type initializeResponse struct {
	Message string   `json:"message"`
	Fight   apiFight `json:"fight"`
}

type startResponse struct {
	Message   string    `json:"message"`
	Fight     *apiFight `json:"fight"`
	StreamURL string    `json:"streamUrl"`
}

// Initialize asks the service to open a new fight for betting.
func (c *Client) Initialize(ctx context.Context) (domain.FightSession, error) {
	body, err := c.doPost(ctx, actionRequest{Action: "initializeFight"})
	if err != nil {
		return domain.FightSession{}, fmt.Errorf("fightsvc: initialize fight: %w", err)
	}

	var resp initializeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.FightSession{}, fmt.Errorf("fightsvc: decode initialize response: %w", err)
	}
	return resp.Fight.toDomain()
}

// Status fetches the current fight state.
func (c *Client) Status(ctx context.Context, publicID string) (domain.FightSession, error) {
	params := url.Values{}
	params.Set("fightId", publicID)

	body, err := c.doGet(ctx, "/fight-process?"+params.Encode())
	if err != nil {
		return domain.FightSession{}, fmt.Errorf("fightsvc: fight status %s: %w", publicID, err)
	}

	var fight apiFight
	if err := json.Unmarshal(body, &fight); err != nil {
		return domain.FightSession{}, fmt.Errorf("fightsvc: decode fight status: %w", err)
	}
	return fight.toDomain()
}

// Start moves a fight out of its betting window. The service returns the
// stream URL once the fight process is live.
func (c *Client) Start(ctx context.Context, publicID string, secureID uint64) (string, error) {
	body, err := c.doPost(ctx, actionRequest{
		Action:   "startFight",
		FightID:  publicID,
		SecureID: strconv.FormatUint(secureID, 10),
	})
	if err != nil {
		return "", fmt.Errorf("fightsvc: start fight %s: %w", publicID, err)
	}

	var resp startResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("fightsvc: decode start response: %w", err)
	}
	if resp.StreamURL != "" {
		return resp.StreamURL, nil
	}
	if resp.Fight != nil {
		return resp.Fight.StreamURL, nil
	}
	return "", nil
}

func (f *apiFight) toDomain() (domain.FightSession, error) {
	status, err := parseStatus(f.Status)
	if err != nil {
		return domain.FightSession{}, err
	}

	var secureID uint64
	if f.SecureID != "" {
		secureID, err = strconv.ParseUint(f.SecureID, 10, 64)
		if err != nil {
			return domain.FightSession{}, fmt.Errorf("fightsvc: parse secure id %q: %w", f.SecureID, err)
		}
	}

	s := domain.FightSession{
		Status:    status,
		PublicID:  f.FightID,
		SecureID:  secureID,
		StreamURL: f.StreamURL,
		Winner:    domain.Side(f.Winner),
		Bets: domain.BetTotals{
			Player1: f.Bets.Player1,
			Player2: f.Bets.Player2,
		},
	}
	if f.CurrentState != nil {
		s.Round = domain.RoundState{
			Round:     f.CurrentState.Round,
			P1Health:  f.CurrentState.P1Health,
			P2Health:  f.CurrentState.P2Health,
			Timestamp: time.Unix(f.CurrentState.Timestamp, 0),
		}
	}
	return s, nil
}

// parseStatus maps the service's status strings, which are looser than the
// local state enum, onto it.
func parseStatus(s string) (domain.FightStatus, error) {
	switch s {
	case "", "no_fight":
		return domain.StatusNoFight, nil
	case "betting_open", "betting", "waiting":
		return domain.StatusBettingOpen, nil
	case "in_progress", "active", "started":
		return domain.StatusInProgress, nil
	case "completed", "finished":
		return domain.StatusCompleted, nil
	case "failed", "error":
		return domain.StatusFailed, nil
	}
	return domain.StatusNoFight, fmt.Errorf("fightsvc: unknown fight status %q", s)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doPost(ctx context.Context, reqBody actionRequest) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/fight-process", payload)
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, status, err := c.doOnce(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	// A 401 usually means the session token expired server-side. Refresh
	// it once and retry; a second 401 is a real authorization failure.
	if status == http.StatusUnauthorized && c.session != nil {
		c.session.Invalidate()
		body, status, err = c.doOnce(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("http status %d: %s", status, truncate(body, 256))
	}
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		token, err := c.session.Token(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("session token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
