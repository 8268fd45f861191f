package migration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a run failure and selects the process exit code.
type Kind string

const (
	KindUsage         Kind = "usage"
	KindConfig        Kind = "config"
	KindConnectivity  Kind = "connectivity"
	KindQuery         Kind = "query"
	KindRowAssembly   Kind = "row_assembly"
	KindBatchWrite    Kind = "batch_write"
	KindMetadataWrite Kind = "metadata_write"
	KindOther         Kind = "other"
)

const (
	ExitOK           = 0
	ExitOther        = 1
	ExitUsage        = 2
	ExitConfig       = 3
	ExitConnectivity = 4
	ExitQuery        = 5
	ExitBatchWrite   = 6
)

// ErrInvalidRow marks a malformed extraction row. Rows carrying it are skipped.
var ErrInvalidRow = errors.New("invalid passage row")

// Error is the canonical run failure wrapper.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	switch {
	case op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v (%s)", op, e.Err, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v (%s)", e.Err, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with a kind. An error that already carries a kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Err: err}
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// ExitCode maps an error to the process exit code. Recoverable kinds map to 0.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindUsage:
		return ExitUsage
	case KindConfig:
		return ExitConfig
	case KindConnectivity:
		return ExitConnectivity
	case KindQuery:
		return ExitQuery
	case KindBatchWrite:
		return ExitBatchWrite
	case KindRowAssembly, KindMetadataWrite:
		return ExitOK
	default:
		return ExitOther
	}
}

// ClassifySource maps relational failures to connectivity or query kinds.
func ClassifySource(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Wrap(KindConnectivity, op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection_exception
			return Wrap(KindConnectivity, op, err)
		case pgErr.Code == "28P01", pgErr.Code == "28000": // auth failures
			return Wrap(KindConnectivity, op, err)
		default:
			return Wrap(KindQuery, op, err)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(KindConnectivity, op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindOther, op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "failed to connect"),
		strings.Contains(msg, "ping postgres"):
		return Wrap(KindConnectivity, op, err)
	default:
		return Wrap(KindQuery, op, err)
	}
}
