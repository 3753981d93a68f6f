package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/logger"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/claimdesk/claimdesk/internal/repository"
)

// ErrPayeeNotDeleted rejects a restore of a payee that is not soft-deleted.
var ErrPayeeNotDeleted = errors.New("claim payee is not deleted")

// PayeeService handles claim payee business records: role-gated CRUD
// with soft delete and restore. Nested payment accounts and addresses
// are written under the same transactional unit as the parent.
type PayeeService struct {
	db        *database.Postgres
	payeeRepo *repository.PayeeRepository
	log       *logger.Logger
}

// NewPayeeService creates a new PayeeService
func NewPayeeService(db *database.Postgres, payeeRepo *repository.PayeeRepository, log *logger.Logger) *PayeeService {
	return &PayeeService{
		db:        db,
		payeeRepo: payeeRepo,
		log:       log.WithComponent("payee_service"),
	}
}

// PaymentAccountInput describes a nested payment account. A non-empty
// ID updates the existing account; an empty ID creates a new one.
type PaymentAccountInput struct {
	ID            string `json:"id,omitempty"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	PaymentMethod string `json:"paymentMethod"`
	AccountType   string `json:"accountType,omitempty"`
	Email         string `json:"email,omitempty"`
}

// AddressInput describes a nested address, with the same ID semantics
// as PaymentAccountInput.
type AddressInput struct {
	ID         string `json:"id,omitempty"`
	Type       string `json:"type"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

// PayeeRequest contains the data for creating or updating a claim payee
type PayeeRequest struct {
	ClaimPayeeType  string                `json:"claimPayeeType,omitempty"`
	ClaimPayeeName  string                `json:"claimPayeeName"`
	ClaimPayeeCode  string                `json:"claimPayeeCode,omitempty"`
	LegalEntityType string                `json:"legalEntityType,omitempty"`
	TaxID           string                `json:"taxId,omitempty"`
	FirstName       string                `json:"firstName"`
	LastName        string                `json:"lastName"`
	Phone           string                `json:"phone"`
	Email           string                `json:"email,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	PaymentAccounts []PaymentAccountInput `json:"paymentAccounts,omitempty"`
	Addresses       []AddressInput        `json:"addresses,omitempty"`
}

// Validate checks the required payee fields
func (r *PayeeRequest) Validate() error {
	if r.ClaimPayeeName == "" {
		return fmt.Errorf("claimPayeeName is required")
	}
	if r.FirstName == "" {
		return fmt.Errorf("firstName is required")
	}
	if r.LastName == "" {
		return fmt.Errorf("lastName is required")
	}
	if r.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	for _, a := range r.PaymentAccounts {
		if a.AccountName == "" || a.AccountNumber == "" || a.PaymentMethod == "" {
			return fmt.Errorf("payment accounts require accountName, accountNumber, and paymentMethod")
		}
	}
	for _, a := range r.Addresses {
		if a.Type == "" || a.Street == "" || a.City == "" || a.State == "" || a.PostalCode == "" {
			return fmt.Errorf("addresses require type, street, city, state, and postalCode")
		}
	}
	return nil
}

// Create creates a payee with its nested children in one transaction
func (s *PayeeService) Create(ctx context.Context, req PayeeRequest, userID string) (*model.ClaimPayee, error) {
	now := time.Now()
	payee := payeeFromRequest(req)
	payee.ID = generateID("pay")
	payee.CreatedBy = userID
	payee.UpdatedBy = userID
	payee.CreatedAt = now
	payee.UpdatedAt = now

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		repo := s.payeeRepo.WithTx(tx)
		if err := repo.Create(ctx, payee); err != nil {
			return err
		}
		for _, in := range req.PaymentAccounts {
			account := paymentAccountFromInput(in, payee.ID, now)
			if err := repo.CreatePaymentAccount(ctx, account); err != nil {
				return err
			}
		}
		for _, in := range req.Addresses {
			address := addressFromInput(in, payee.ID, now)
			if err := repo.CreateAddress(ctx, address); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create claim payee: %w", err)
	}

	s.log.Info().Str("payee_id", payee.ID).Str("created_by", userID).Msg("claim payee created")
	return s.payeeRepo.GetByID(ctx, payee.ID, false)
}

// List returns all non-deleted payees, newest first
func (s *PayeeService) List(ctx context.Context) ([]*model.ClaimPayee, error) {
	return s.payeeRepo.List(ctx)
}

// Get returns a payee by ID, excluding soft-deleted records
func (s *PayeeService) Get(ctx context.Context, id string) (*model.ClaimPayee, error) {
	return s.payeeRepo.GetByID(ctx, id, false)
}

// Update applies the payee update, upserting nested children under one
// transactional unit.
func (s *PayeeService) Update(ctx context.Context, id string, req PayeeRequest, userID string) (*model.ClaimPayee, error) {
	// Existence check doubles as the soft-delete gate
	if _, err := s.payeeRepo.GetByID(ctx, id, false); err != nil {
		return nil, err
	}

	now := time.Now()
	payee := payeeFromRequest(req)
	payee.ID = id
	payee.UpdatedBy = userID

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		repo := s.payeeRepo.WithTx(tx)
		if err := repo.Update(ctx, payee); err != nil {
			return err
		}
		for _, in := range req.PaymentAccounts {
			if in.ID == "" {
				if err := repo.CreatePaymentAccount(ctx, paymentAccountFromInput(in, id, now)); err != nil {
					return err
				}
				continue
			}
			account := paymentAccountFromInput(in, id, now)
			account.ID = in.ID
			if err := repo.UpdatePaymentAccount(ctx, account); err != nil {
				return err
			}
		}
		for _, in := range req.Addresses {
			if in.ID == "" {
				if err := repo.CreateAddress(ctx, addressFromInput(in, id, now)); err != nil {
					return err
				}
				continue
			}
			address := addressFromInput(in, id, now)
			address.ID = in.ID
			if err := repo.UpdateAddress(ctx, address); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update claim payee: %w", err)
	}

	return s.payeeRepo.GetByID(ctx, id, false)
}

// Delete soft-deletes a payee
func (s *PayeeService) Delete(ctx context.Context, id, userID string) error {
	if err := s.payeeRepo.SoftDelete(ctx, id, userID, time.Now()); err != nil {
		return err
	}
	s.log.Info().Str("payee_id", id).Str("deleted_by", userID).Msg("claim payee deleted")
	return nil
}

// Restore recovers a soft-deleted payee
func (s *PayeeService) Restore(ctx context.Context, id, userID string) (*model.ClaimPayee, error) {
	payee, err := s.payeeRepo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !payee.IsDeleted {
		return nil, ErrPayeeNotDeleted
	}

	if err := s.payeeRepo.Restore(ctx, id, userID); err != nil {
		return nil, err
	}

	s.log.Info().Str("payee_id", id).Str("restored_by", userID).Msg("claim payee restored")
	return s.payeeRepo.GetByID(ctx, id, false)
}

func payeeFromRequest(req PayeeRequest) *model.ClaimPayee {
	return &model.ClaimPayee{
		ClaimPayeeType:  req.ClaimPayeeType,
		ClaimPayeeName:  req.ClaimPayeeName,
		ClaimPayeeCode:  req.ClaimPayeeCode,
		LegalEntityType: req.LegalEntityType,
		TaxID:           req.TaxID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Email:           req.Email,
		Notes:           req.Notes,
	}
}

func paymentAccountFromInput(in PaymentAccountInput, payeeID string, now time.Time) *model.PaymentAccount {
	return &model.PaymentAccount{
		ID:            generateID("acc"),
		ClaimPayeeID:  payeeID,
		AccountName:   in.AccountName,
		AccountNumber: in.AccountNumber,
		PaymentMethod: in.PaymentMethod,
		AccountType:   in.AccountType,
		Email:         in.Email,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func addressFromInput(in AddressInput, payeeID string, now time.Time) *model.Address {
	return &model.Address{
		ID:           generateID("adr"),
		ClaimPayeeID: payeeID,
		Type:         in.Type,
		Street:       in.Street,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
