package models

import "github.com/google/uuid"

// ensureID assigns a v4 UUID when the caller left the primary key empty. Postgres
// also defaults ids, but SQLite (local runs and tests) cannot.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
