package domain

// BankAccountType represents the type of a bank account
type BankAccountType string

const (
	AccountChecking BankAccountType = "checking"
	AccountSavings  BankAccountType = "savings"
	AccountFunding  BankAccountType = "funding"
	AccountClaims   BankAccountType = "claims"
)

// IsExternal reports whether the account type lives at an external bank
// (the pull side of an ACH debit).
func (t BankAccountType) IsExternal() bool {
	return t == AccountChecking || t == AccountSavings
}

// IsInternal reports whether the account type is a book account
// (funding or claims).
func (t BankAccountType) IsInternal() bool {
	return t == AccountFunding || t == AccountClaims
}

// AccountStatus represents an account lifecycle status
type AccountStatus string

const (
	AccountPending  AccountStatus = "PENDING"
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
)

// Account represents an internal or external bank account
type Account struct {
	ID             string          `json:"id"`
	UUID           string          `json:"uuid"`
	Name           string          `json:"name"`
	AccountType    BankAccountType `json:"account_type"`
	AccountNumber  string          `json:"account_number,omitempty"`
	RoutingNumber  string          `json:"routing_number,omitempty"`
	Balance        int64           `json:"balance,omitempty"`
	Status         AccountStatus   `json:"status"`
	OrganizationID string          `json:"organization_id,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

// PaymentType represents the direction of an ACH payment
type PaymentType string

const (
	PaymentCredit PaymentType = "ach_credit"
	PaymentDebit  PaymentType = "ach_debit"
)

// PaymentStatus represents a payment lifecycle status
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)
