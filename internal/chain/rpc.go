package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient implements Ledger over a Solana JSON-RPC endpoint. Reads use
// confirmed commitment so freshly landed transactions are visible without
// waiting for finality.
type RPCClient struct {
	rpc *rpc.Client
	log *slog.Logger
}

var _ Ledger = (*RPCClient)(nil)

// NewRPCClient connects to endpoint. The logger may be nil.
func NewRPCClient(endpoint string, log *slog.Logger) *RPCClient {
	if log == nil {
		log = slog.Default()
	}
	return &RPCClient{
		rpc: rpc.New(endpoint),
		log: log.With("component", "chain"),
	}
}

func (c *RPCClient) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("chain/rpc: token balance of %s: %w", account, err)
	}
	if res == nil || res.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("chain/rpc: parse token amount %q: %w", res.Value.Amount, err)
	}
	return amount, nil
}

func (c *RPCClient) NativeBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("chain/rpc: native balance of %s: %w", addr, err)
	}
	return res.Value, nil
}

func (c *RPCClient) AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("chain/rpc: account info of %s: %w", addr, err)
	}
	return true, nil
}

func (c *RPCClient) FetchBet(ctx context.Context, addr solana.PublicKey) (*BetAccount, error) {
	data, err := c.accountData(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeBetAccount(data)
}

func (c *RPCClient) FetchBettingState(ctx context.Context, addr solana.PublicKey) (*BettingStateAccount, error) {
	data, err := c.accountData(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeBettingState(data)
}

func (c *RPCClient) accountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("chain/rpc: account info of %s: %w", addr, err)
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, nil
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("chain/rpc: latest blockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

func (c *RPCClient) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("chain/rpc: send transaction: %w", err)
	}
	c.log.Debug("transaction submitted", "signature", sig.String())
	return sig, nil
}

func (c *RPCClient) Status(ctx context.Context, sig solana.Signature) (TxStatus, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return TxStatus{}, fmt.Errorf("chain/rpc: signature status of %s: %w", sig, err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return TxStatus{State: TxPending}, nil
	}
	st := res.Value[0]
	if st.Err != nil {
		status := TxStatus{State: TxFailed}
		if code, ok := extractCustomCode(st.Err); ok {
			status.Code = ErrorCodeName(code)
		}
		return status, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return TxStatus{State: TxConfirmed}, nil
	}
	return TxStatus{State: TxPending}, nil
}

// hexCustomErr matches preflight failures, which arrive as log text rather
// than structured status errors.
var hexCustomErr = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// ExtractErrorCode pulls a betting program error name out of a submission
// error, if one is present.
func ExtractErrorCode(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	m := hexCustomErr.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	code, perr := strconv.ParseInt(m[1], 16, 64)
	if perr != nil {
		return "", false
	}
	return ErrorCodeName(int(code)), true
}

// extractCustomCode walks the JSON structure of a transaction error, e.g.
// {"InstructionError":[0,{"Custom":6002}]}, looking for a Custom code.
func extractCustomCode(v any) (int, bool) {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if k == "Custom" {
				if n, ok := asInt(inner); ok {
					return n, true
				}
			}
			if n, ok := extractCustomCode(inner); ok {
				return n, true
			}
		}
	case []any:
		for _, inner := range t {
			if n, ok := extractCustomCode(inner); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
