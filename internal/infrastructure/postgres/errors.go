package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edge-landings/api/internal/domain"
)

const backendName = "postgres"

// classify maps SQLSTATE codes onto the store error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := domain.StoreErrUnknown
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind = kindForCode(pgErr.Code)
	}
	return domain.NewStoreError(kind, backendName, op, err)
}

func kindForCode(code string) domain.StoreErrorKind {
	switch code {
	case "28000", "28P01": // invalid_authorization_specification, invalid_password
		return domain.StoreErrAuth
	case "42P01", "3F000", "42703": // undefined_table, invalid_schema_name, undefined_column
		return domain.StoreErrMissingSchema
	case "42501": // insufficient_privilege, also raised for row-level security violations
		return domain.StoreErrPermission
	case "22021", "22P05": // character_not_in_repertoire, untranslatable_character
		return domain.StoreErrEncoding
	}
	return domain.StoreErrUnknown
}
