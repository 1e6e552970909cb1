package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every operation-level failure so callers can branch on
// kind without parsing message text.
type ErrorKind string

const (
	// KindValidation covers bad amounts, ranges, and fight states. These
	// failures never leave the client; no transaction is built.
	KindValidation ErrorKind = "validation"

	// KindInsufficientBalance means the bettor's free balance cannot cover
	// the requested amount.
	KindInsufficientBalance ErrorKind = "insufficient_balance"

	// KindUnauthorized means the configured signer is not allowed to perform
	// a privileged operation (e.g. settle).
	KindUnauthorized ErrorKind = "unauthorized"

	// KindAccountNotFound means an operation expected an existing remote
	// account that does not exist. Balance reads treat missing accounts as
	// zero instead of returning this.
	KindAccountNotFound ErrorKind = "account_not_found"

	// KindRemoteRejected means the remote program returned a named failure
	// code. The code is preserved verbatim in OpError.Code.
	KindRemoteRejected ErrorKind = "remote_rejected"

	// KindConfirmationTimeout means the transaction was submitted but its
	// outcome is unknown after the confirmation retry budget was exhausted.
	// Distinct from a rejection: the transaction may still land.
	KindConfirmationTimeout ErrorKind = "confirmation_timeout"

	// KindSignerDeclined means the signer refused to sign the transaction.
	KindSignerDeclined ErrorKind = "signer_declined"
)

// OpError is the single error type surfaced by state-changing operations.
type OpError struct {
	Kind ErrorKind
	Op   string // operation name, e.g. "place_bet"
	Code string // remote failure code, set only for remote rejections
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Code != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Code, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *OpError) Unwrap() error { return e.Err }

// Validationf builds a KindValidation error from a format string.
func Validationf(op, format string, args ...any) *OpError {
	return &OpError{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// InsufficientBalance builds a KindInsufficientBalance error.
func InsufficientBalance(op string, have, want uint64) *OpError {
	return &OpError{
		Kind: KindInsufficientBalance,
		Op:   op,
		Err:  fmt.Errorf("have %d, need %d", have, want),
	}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(op, reason string) *OpError {
	return &OpError{Kind: KindUnauthorized, Op: op, Err: errors.New(reason)}
}

// AccountNotFound builds a KindAccountNotFound error.
func AccountNotFound(op, account string) *OpError {
	return &OpError{Kind: KindAccountNotFound, Op: op, Err: fmt.Errorf("account %s does not exist", account)}
}

// RemoteRejected builds an error carrying the remote program's failure code
// verbatim. Codes that map onto a more specific kind (Unauthorized,
// InsufficientFunds) keep the code but get the narrower kind.
func RemoteRejected(op, code string, err error) *OpError {
	kind := KindRemoteRejected
	switch code {
	case "Unauthorized", "InvalidAuthority":
		kind = KindUnauthorized
	case "InsufficientFunds", "InsufficientTreasuryFunds", "InsufficientSolVaultFunds":
		kind = KindInsufficientBalance
	}
	return &OpError{Kind: kind, Op: op, Code: code, Err: err}
}

// ConfirmationTimeout builds a KindConfirmationTimeout error.
func ConfirmationTimeout(op string, attempts int) *OpError {
	return &OpError{
		Kind: KindConfirmationTimeout,
		Op:   op,
		Err:  fmt.Errorf("no confirmation after %d attempts", attempts),
	}
}

// SignerDeclined builds a KindSignerDeclined error.
func SignerDeclined(op string, err error) *OpError {
	return &OpError{Kind: KindSignerDeclined, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" when err is not an OpError.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}

// IsKind reports whether err is an OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
