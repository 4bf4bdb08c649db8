package sqlite

import (
	"errors"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// translateError maps SQLite constraint violations onto the kindstore error
// contract: uniqueness violations become *types.UniquenessConflictError
// (the driver error stays reachable through errors.As) and NOT NULL
// violations become a *types.ValidationError naming the empty field. Every
// other error is returned unchanged.
func translateError(kind *types.Kind, data map[string]any, err error) error {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return &types.UniquenessConflictError{Kind: kind.Name(), Err: err}
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		if verr := types.CheckRequired(kind, data); verr != nil {
			return verr
		}
		return err
	default:
		return err
	}
}
