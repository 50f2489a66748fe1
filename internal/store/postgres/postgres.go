package postgres

import "billingledger/internal/store"

var (
	_ store.LedgerStore       = LedgerRepo{}
	_ store.TransactionStore  = TransactionRepo{}
	_ store.AnomalyStore      = AnomalyRepo{}
	_ store.SubscriptionStore = SubscriptionRepo{}
	_ store.InvoiceStore      = InvoiceRepo{}
)
