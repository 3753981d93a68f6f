package model

import "time"

// ClaimPayee represents a business record for a party payable on claims.
// Deletion is a soft-delete flag; deleted payees are recoverable via restore.
type ClaimPayee struct {
	ID              string           `json:"id"`
	ClaimPayeeType  string           `json:"claimPayeeType,omitempty"`
	ClaimPayeeName  string           `json:"claimPayeeName"`
	ClaimPayeeCode  string           `json:"claimPayeeCode,omitempty"`
	LegalEntityType string           `json:"legalEntityType,omitempty"`
	TaxID           string           `json:"taxId,omitempty"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	Phone           string           `json:"phone"`
	Email           string           `json:"email,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	PaymentAccounts []PaymentAccount `json:"paymentAccounts,omitempty"`
	Addresses       []Address        `json:"addresses,omitempty"`
	CreatedBy       string           `json:"createdBy"`
	UpdatedBy       string           `json:"updatedBy"`
	DeletedBy       *string          `json:"deletedBy,omitempty"`
	IsDeleted       bool             `json:"isDeleted"`
	DeletedAt       *time.Time       `json:"deletedAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PaymentAccount represents a payee's disbursement account.
type PaymentAccount struct {
	ID            string    `json:"id"`
	ClaimPayeeID  string    `json:"claimPayeeId"`
	AccountName   string    `json:"accountName"`
	AccountNumber string    `json:"accountNumber"`
	PaymentMethod string    `json:"paymentMethod"`
	AccountType   string    `json:"accountType,omitempty"`
	Email         string    `json:"email,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Address represents a payee mailing or physical address.
type Address struct {
	ID           string    `json:"id"`
	ClaimPayeeID string    `json:"claimPayeeId"`
	Type         string    `json:"type"`
	Street       string    `json:"street"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postalCode"`
	Country      string    `json:"country,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
