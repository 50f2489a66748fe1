package memory

import (
	"billingledger/internal/store"
	"billingledger/internal/unitofwork"
)

var (
	_ store.LedgerStore       = LedgerRepo{}
	_ store.TransactionStore  = TransactionRepo{}
	_ store.AnomalyStore      = AnomalyRepo{}
	_ store.SubscriptionStore = SubscriptionRepo{}
	_ store.InvoiceStore      = InvoiceRepo{}
	_ unitofwork.UnitOfWork   = UnitOfWork{}
)
