package db

import (
	"time"
)

// AccountRow is a ledger account as stored in PostgreSQL
type AccountRow struct {
	Address   []byte
	Data      []byte
	UpdatedAt time.Time
}

