package orm

import "errors"

// ORM errors.
var (
	ErrNotFound             = errors.New("orm: record not found")
	ErrInvalidOperator      = errors.New("orm: invalid operator")
	ErrInvalidIdentifier    = errors.New("orm: invalid identifier")
	ErrInvalidDirection     = errors.New("orm: invalid order direction")
	ErrInvalidJoin          = errors.New("orm: invalid join condition")
	ErrNoColumns            = errors.New("orm: no columns to write")
	ErrMissingWhere         = errors.New("orm: delete without where clause; call All() to delete every row")
	ErrReturningUnsupported = errors.New("orm: RETURNING is not supported by this dialect")
	ErrUnknownDriver        = errors.New("orm: unknown driver")
	ErrConnectionFailed     = errors.New("orm: failed to open database connection")
	ErrHealthcheckFailed    = errors.New("orm: healthcheck failed")
	ErrNoPrimaryKey         = errors.New("orm: entity has no primary key")
	ErrNotAnEntity          = errors.New("orm: entity must be a struct")
	ErrInvalidDestination   = errors.New("orm: destination must be a non-nil pointer")
	ErrMigration            = errors.New("orm: migration failed")
)
