package masterdata

// AccountType classifies an account. The type drives only the display sign
// convention of balances, never allocation logic.
type AccountType string

const (
	AccountOwner        AccountType = "owner"
	AccountOrganization AccountType = "organization"
	AccountCommunity    AccountType = "community"
	AccountStaff        AccountType = "staff"
)

// Account is a bookkeeping account. Owner accounts reference the member they
// belong to; organization/community/staff accounts may have no user.
type Account struct {
	ID     int64
	Name   string
	Type   AccountType
	UserID *int64
}

// InvertForDisplay reports whether balances of this account are shown with the
// sign flipped: from the community's perspective an owner's credit is a
// liability. The stored balance is never changed.
func (a Account) InvertForDisplay() bool {
	return a.Type == AccountOwner
}
