package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// SQLDiagnostics is what the database driver reported about a failed statement.
type SQLDiagnostics struct {
	Driver     string `json:"driver"`
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ErrorDump is the loggable form of an error chain.
type ErrorDump struct {
	TopMessage string          `json:"top_message"`
	Code       Code            `json:"code,omitempty"`
	Chain      []string        `json:"chain,omitempty"`
	SQL        *SQLDiagnostics `json:"sql,omitempty"`
}

// Fields flattens the dump into logger fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.SQL != nil {
		fields["sql_driver"] = d.SQL.Driver
		fields["sql_code"] = d.SQL.Code
		fields["sql_constraint"] = d.SQL.Constraint
		fields["sql_table"] = d.SQL.Table
		fields["sql_column"] = d.SQL.Column
		fields["sql_detail"] = d.SQL.Detail
		fields["sql_message"] = d.SQL.Message
	}
	return fields
}

// Dump walks err's chain and pulls out driver diagnostics from Postgres or sqlite.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error(), Code: Classify(err)}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.SQL = sqlDiagnostics(err)
	return d
}

func sqlDiagnostics(err error) *SQLDiagnostics {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &SQLDiagnostics{
			Driver:     "postgres",
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &SQLDiagnostics{
			Driver:  "sqlite",
			Code:    liteErr.ExtendedCode.Error(),
			Message: liteErr.Error(),
		}
	}
	return nil
}
