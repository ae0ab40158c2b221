package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate takes a row-level lock on the rows the query touches. The sqlite
// dialect (used by the test suites) has no SELECT ... FOR UPDATE; its single
// writer already serializes conflicting transactions.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
