package mysql

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Store keeps both collections as tables with read_by held in a JSON
// array column. Schema: db/schema.sql.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

func New(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{db: db, log: logger}
}
