// model/accounts.go
package model

type AccountCode string

const (
	AccountCashClearing       AccountCode = "CASH_CLEARING"
	AccountSupportLiability   AccountCode = "SUPPORT_LIABILITY"
	AccountDisputeReserve     AccountCode = "DISPUTE_RESERVE"
	AccountCreatorPayable     AccountCode = "CREATOR_PAYABLE"
	AccountDisputeLossExpense AccountCode = "DISPUTE_LOSS_EXPENSE"
)

type AccountKind string

const (
	AccountAsset     AccountKind = "asset"
	AccountLiability AccountKind = "liability"
	AccountExpense   AccountKind = "expense"
)

type LedgerAccount struct {
	Code AccountCode
	Kind AccountKind
	Name string
}

// LedgerAccountCatalog is the fixed chart of accounts. The journal engine
// rejects any line whose code is not listed here.
var LedgerAccountCatalog = map[AccountCode]LedgerAccount{
	AccountCashClearing:       {AccountCashClearing, AccountAsset, "Cash clearing"},
	AccountSupportLiability:   {AccountSupportLiability, AccountLiability, "Support liability"},
	AccountDisputeReserve:     {AccountDisputeReserve, AccountLiability, "Dispute reserve"},
	AccountCreatorPayable:     {AccountCreatorPayable, AccountLiability, "Creator payable"},
	AccountDisputeLossExpense: {AccountDisputeLossExpense, AccountExpense, "Dispute loss expense"},
}

func KnownAccount(code AccountCode) bool {
	_, ok := LedgerAccountCatalog[code]
	return ok
}
