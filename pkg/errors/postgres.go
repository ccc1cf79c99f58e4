package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGFields are the diagnostic fields Postgres attaches to a failed statement.
type PGFields struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Postgres extracts driver diagnostics from err for either pgx or lib/pq.
func Postgres(err error) (PGFields, bool) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return PGFields{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return PGFields{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGFields{}, false
}

// Storage wraps a persistence failure with a code derived from its SQLSTATE:
// unique and exclusion violations conflict, other integrity violations are
// invalid input, and everything else (including serialization failures and
// timeouts) is a retryable dependency error. Typed errors pass through.
func Storage(err error, op string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	return Wrap(classifyStorage(err), err, op)
}

func classifyStorage(err error) Code {
	if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(err, context.Canceled) {
		return CodeDependency
	}
	pg, ok := Postgres(err)
	if !ok {
		return CodeDependency
	}
	switch {
	case pg.Code == "23505", pg.Code == "23P01":
		return CodeConflict
	case strings.HasPrefix(pg.Code, "23"), strings.HasPrefix(pg.Code, "22"):
		return CodeValidation
	default:
		return CodeDependency
	}
}

// Dump flattens err for structured logs.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string
	PG         PGFields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}
	d.PG, _ = Postgres(err)
	return d
}

// Fields returns the non-empty dump entries keyed for the logger.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	for key, value := range map[string]string{
		"pg_code":       d.PG.Code,
		"pg_constraint": d.PG.Constraint,
		"pg_table":      d.PG.Table,
		"pg_column":     d.PG.Column,
		"pg_detail":     d.PG.Detail,
		"pg_message":    d.PG.Message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
