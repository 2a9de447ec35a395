package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/service"
)

// UnitOfWork binds the store bundle to a database handle and runs atomic
// units on a single transaction, so every guard read and the writes it
// justifies observe one consistent view.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func storesFor(db *gorm.DB) service.Stores {
	return service.Stores{
		Ledger:       NewStatusLedger(db),
		Validations:  NewValidationStore(db),
		SubContracts: NewSubContractRepository(db),
		Contracts:    NewContractRepository(db),
		Envelopes:    NewEnvelopeRepository(db),
	}
}

// Atomic runs fn with stores bound to one transaction. Any returned error
// rolls the whole unit back.
func (u *UnitOfWork) Atomic(ctx context.Context, fn func(tx service.Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(storesFor(tx))
	})
}

// View returns stores bound to the base handle for reads outside a unit.
func (u *UnitOfWork) View() service.Stores {
	return storesFor(u.db)
}
