package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claimdesk/claimdesk/internal/database"
	"github.com/claimdesk/claimdesk/internal/model"
)

const payeeColumns = `id, claim_payee_type, claim_payee_name, claim_payee_code,
	       legal_entity_type, tax_id, first_name, last_name, phone, email, notes,
	       created_by, updated_by, deleted_by, is_deleted, deleted_at, created_at, updated_at`

// PayeeRepository handles claim payee persistence
type PayeeRepository struct {
	db database.Executor
}

// NewPayeeRepository creates a new PayeeRepository
func NewPayeeRepository(db *database.Postgres) *PayeeRepository {
	return &PayeeRepository{db: db}
}

// WithTx returns a copy of the repository bound to an open transaction.
func (r *PayeeRepository) WithTx(tx *sql.Tx) *PayeeRepository {
	return &PayeeRepository{db: tx}
}

// Create inserts a claim payee row (children are inserted separately)
func (r *PayeeRepository) Create(ctx context.Context, p *model.ClaimPayee) error {
	query := `
		INSERT INTO claim_payees (id, claim_payee_type, claim_payee_name, claim_payee_code,
		    legal_entity_type, tax_id, first_name, last_name, phone, email, notes,
		    created_by, updated_by, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ClaimPayeeType, p.ClaimPayeeName, p.ClaimPayeeCode,
		p.LegalEntityType, p.TaxID, p.FirstName, p.LastName, p.Phone, p.Email, p.Notes,
		p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create claim payee: %w", err)
	}
	return nil
}

// GetByID retrieves a payee with its children. Soft-deleted payees are
// excluded unless includeDeleted is set (restore needs to see them).
func (r *PayeeRepository) GetByID(ctx context.Context, id string, includeDeleted bool) (*model.ClaimPayee, error) {
	query := `SELECT ` + payeeColumns + ` FROM claim_payees WHERE id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = false`
	}
	p, err := scanPayee(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if p.PaymentAccounts, err = r.listPaymentAccounts(ctx, id, false); err != nil {
		return nil, err
	}
	if p.Addresses, err = r.listAddresses(ctx, id, false); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all non-deleted payees with their active children,
// newest first.
func (r *PayeeRepository) List(ctx context.Context) ([]*model.ClaimPayee, error) {
	query := `SELECT ` + payeeColumns + ` FROM claim_payees WHERE is_deleted = false ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list claim payees: %w", err)
	}
	defer rows.Close()

	var payees []*model.ClaimPayee
	for rows.Next() {
		p, err := scanPayeeRows(rows)
		if err != nil {
			return nil, err
		}
		payees = append(payees, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range payees {
		if p.PaymentAccounts, err = r.listPaymentAccounts(ctx, p.ID, true); err != nil {
			return nil, err
		}
		if p.Addresses, err = r.listAddresses(ctx, p.ID, true); err != nil {
			return nil, err
		}
	}
	return payees, nil
}

// Update updates the payee's own fields (children go through the
// upsert methods)
func (r *PayeeRepository) Update(ctx context.Context, p *model.ClaimPayee) error {
	query := `
		UPDATE claim_payees
		SET claim_payee_type = $1, claim_payee_name = $2, claim_payee_code = $3,
		    legal_entity_type = $4, tax_id = $5, first_name = $6, last_name = $7,
		    phone = $8, email = $9, notes = $10, updated_by = $11, updated_at = $12
		WHERE id = $13 AND is_deleted = false
	`
	result, err := r.db.ExecContext(ctx, query,
		p.ClaimPayeeType, p.ClaimPayeeName, p.ClaimPayeeCode,
		p.LegalEntityType, p.TaxID, p.FirstName, p.LastName,
		p.Phone, p.Email, p.Notes, p.UpdatedBy, time.Now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update claim payee: %w", err)
	}
	return requireRow(result)
}

// SoftDelete flags a payee deleted without removing the row
func (r *PayeeRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	query := `
		UPDATE claim_payees
		SET is_deleted = true, deleted_at = $1, deleted_by = $2, updated_at = $1
		WHERE id = $3 AND is_deleted = false
	`
	result, err := r.db.ExecContext(ctx, query, at, deletedBy, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete claim payee: %w", err)
	}
	return requireRow(result)
}

// Restore clears the soft-delete flag on a deleted payee
func (r *PayeeRepository) Restore(ctx context.Context, id, updatedBy string) error {
	query := `
		UPDATE claim_payees
		SET is_deleted = false, deleted_at = NULL, deleted_by = NULL,
		    updated_by = $1, updated_at = $2
		WHERE id = $3 AND is_deleted = true
	`
	result, err := r.db.ExecContext(ctx, query, updatedBy, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to restore claim payee: %w", err)
	}
	return requireRow(result)
}

// CreatePaymentAccount inserts a payment account for a payee
func (r *PayeeRepository) CreatePaymentAccount(ctx context.Context, a *model.PaymentAccount) error {
	query := `
		INSERT INTO payment_accounts (id, claim_payee_id, account_name, account_number,
		    payment_method, account_type, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ClaimPayeeID, a.AccountName, a.AccountNumber,
		a.PaymentMethod, a.AccountType, a.Email, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment account: %w", err)
	}
	return nil
}

// UpdatePaymentAccount updates an existing payment account
func (r *PayeeRepository) UpdatePaymentAccount(ctx context.Context, a *model.PaymentAccount) error {
	query := `
		UPDATE payment_accounts
		SET account_name = $1, account_number = $2, payment_method = $3,
		    account_type = $4, email = $5, is_active = $6, updated_at = $7
		WHERE id = $8 AND claim_payee_id = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		a.AccountName, a.AccountNumber, a.PaymentMethod,
		a.AccountType, a.Email, a.IsActive, time.Now(), a.ID, a.ClaimPayeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment account: %w", err)
	}
	return requireRow(result)
}

// CreateAddress inserts an address for a payee
func (r *PayeeRepository) CreateAddress(ctx context.Context, a *model.Address) error {
	query := `
		INSERT INTO addresses (id, claim_payee_id, type, street, city, state,
		    postal_code, country, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ClaimPayeeID, a.Type, a.Street, a.City, a.State,
		a.PostalCode, a.Country, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

// UpdateAddress updates an existing address
func (r *PayeeRepository) UpdateAddress(ctx context.Context, a *model.Address) error {
	query := `
		UPDATE addresses
		SET type = $1, street = $2, city = $3, state = $4, postal_code = $5,
		    country = $6, is_active = $7, updated_at = $8
		WHERE id = $9 AND claim_payee_id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		a.Type, a.Street, a.City, a.State, a.PostalCode,
		a.Country, a.IsActive, time.Now(), a.ID, a.ClaimPayeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	return requireRow(result)
}

func (r *PayeeRepository) listPaymentAccounts(ctx context.Context, payeeID string, activeOnly bool) ([]model.PaymentAccount, error) {
	query := `
		SELECT id, claim_payee_id, account_name, account_number, payment_method,
		       account_type, email, is_active, created_at, updated_at
		FROM payment_accounts
		WHERE claim_payee_id = $1
	`
	if activeOnly {
		query += ` AND is_active = true`
	}
	rows, err := r.db.QueryContext(ctx, query, payeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.PaymentAccount
	for rows.Next() {
		var a model.PaymentAccount
		err := rows.Scan(&a.ID, &a.ClaimPayeeID, &a.AccountName, &a.AccountNumber,
			&a.PaymentMethod, &a.AccountType, &a.Email, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *PayeeRepository) listAddresses(ctx context.Context, payeeID string, activeOnly bool) ([]model.Address, error) {
	query := `
		SELECT id, claim_payee_id, type, street, city, state, postal_code,
		       country, is_active, created_at, updated_at
		FROM addresses
		WHERE claim_payee_id = $1
	`
	if activeOnly {
		query += ` AND is_active = true`
	}
	rows, err := r.db.QueryContext(ctx, query, payeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		err := rows.Scan(&a.ID, &a.ClaimPayeeID, &a.Type, &a.Street, &a.City, &a.State,
			&a.PostalCode, &a.Country, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func scanPayee(row *sql.Row) (*model.ClaimPayee, error) {
	var p model.ClaimPayee
	err := row.Scan(
		&p.ID, &p.ClaimPayeeType, &p.ClaimPayeeName, &p.ClaimPayeeCode,
		&p.LegalEntityType, &p.TaxID, &p.FirstName, &p.LastName, &p.Phone,
		&p.Email, &p.Notes, &p.CreatedBy, &p.UpdatedBy, &p.DeletedBy,
		&p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan claim payee: %w", err)
	}
	return &p, nil
}

func scanPayeeRows(rows *sql.Rows) (*model.ClaimPayee, error) {
	var p model.ClaimPayee
	err := rows.Scan(
		&p.ID, &p.ClaimPayeeType, &p.ClaimPayeeName, &p.ClaimPayeeCode,
		&p.LegalEntityType, &p.TaxID, &p.FirstName, &p.LastName, &p.Phone,
		&p.Email, &p.Notes, &p.CreatedBy, &p.UpdatedBy, &p.DeletedBy,
		&p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan claim payee: %w", err)
	}
	return &p, nil
}
