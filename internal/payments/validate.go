package payments

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
	"github.com/Zuzuna54/fintech-app-demo/internal/gateway"
)

// CreateRequest is a payment as entered by the operator: amount in dollars
// as a decimal string, accounts by UUID.
type CreateRequest struct {
	PaymentType domain.PaymentType `json:"payment_type" binding:"required"`
	FromAccount string             `json:"from_account" binding:"required"`
	ToAccount   string             `json:"to_account"`
	Amount      string             `json:"amount"`
	Description string             `json:"description"`
}

// FieldErrors maps field names to validation messages.
type FieldErrors map[string]string

// maxAmountDollars bounds a single payment. Anything above it is a typo or
// abuse, and keeps the cents conversion far from int64 range.
const maxAmountDollars = 1_000_000_000

// Validate checks the request against the ACH direction rules and, when it
// passes, returns the wire payload with the amount converted to cents and
// a fresh idempotency key attached.
//
// Direction rules: an ACH debit pulls from an external account
// (checking/savings) into an internal one (funding/claims); an ACH credit
// pushes the other way.
func Validate(req *CreateRequest, accounts []domain.Account) (*gateway.PaymentRequest, FieldErrors) {
	errs := FieldErrors{}

	byUUID := make(map[string]*domain.Account, len(accounts))
	for i := range accounts {
		byUUID[accounts[i].UUID] = &accounts[i]
	}

	if req.PaymentType != domain.PaymentDebit && req.PaymentType != domain.PaymentCredit {
		errs["payment_type"] = "Payment type must be ach_debit or ach_credit"
	}

	if req.FromAccount == "" {
		errs["from_account"] = "Source account is required"
	} else if source, ok := byUUID[req.FromAccount]; !ok {
		errs["from_account"] = "Invalid source account"
	} else {
		switch req.PaymentType {
		case domain.PaymentDebit:
			if !source.AccountType.IsExternal() {
				errs["from_account"] = "Source account must be external (checking/savings) for ACH debit (pull)"
			}
		case domain.PaymentCredit:
			if !source.AccountType.IsInternal() {
				errs["from_account"] = "Source account must be internal (funding/claims) for ACH credit (push)"
			}
		}
	}

	if req.ToAccount == "" {
		errs["to_account"] = "Destination account is required"
	} else if dest, ok := byUUID[req.ToAccount]; !ok {
		errs["to_account"] = "Invalid destination account"
	} else {
		switch req.PaymentType {
		case domain.PaymentDebit:
			if !dest.AccountType.IsInternal() {
				errs["to_account"] = "Destination account must be internal (funding/claims) for ACH debit (pull)"
			}
		case domain.PaymentCredit:
			if !dest.AccountType.IsExternal() {
				errs["to_account"] = "Destination account must be external (checking/savings) for ACH credit (push)"
			}
		}
	}

	if req.FromAccount != "" && req.FromAccount == req.ToAccount {
		errs["from_account"] = "Source and destination accounts must be different"
		errs["to_account"] = "Source and destination accounts must be different"
	}

	cents := int64(0)
	if req.Amount == "" {
		errs["amount"] = "Amount is required"
	} else {
		amount, err := strconv.ParseFloat(req.Amount, 64)
		switch {
		case err != nil || math.IsNaN(amount) || amount <= 0:
			errs["amount"] = "Amount must be greater than 0"
		case math.IsInf(amount, 0) || amount > maxAmountDollars:
			errs["amount"] = "Amount exceeds the maximum allowed"
		default:
			cents = int64(math.Round(amount * 100))
		}
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		errs["description"] = "Description is required"
	} else if utf8.RuneCountInString(description) < 3 {
		errs["description"] = "Description must be at least 3 characters"
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &gateway.PaymentRequest{
		PaymentType:    req.PaymentType,
		FromAccountID:  req.FromAccount,
		ToAccountID:    req.ToAccount,
		AmountCents:    cents,
		Description:    description,
		IdempotencyKey: uuid.NewString(),
	}, nil
}
