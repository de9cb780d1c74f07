package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pace-club/internal/models"
)

// ErrIdentityNotFound is returned when no record exists for a wallet
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository persists the per-wallet onboarding record: verified
// flag, disclosed attributes, and the linked fitness account. One row per
// wallet; each step completion is a single upsert, so the last writer wins
// without torn records.
type IdentityRepository struct {
	db *PostgresDB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *PostgresDB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Get retrieves the record for a wallet address
func (r *IdentityRepository) Get(ctx context.Context, walletAddress string) (*models.Identity, error) {
	query := `
		SELECT wallet_address, verified, disclosed, fitness_account, created_at, updated_at
		FROM identities
		WHERE wallet_address = $1
	`

	var (
		identity    models.Identity
		disclosed   []byte
		fitnessJSON []byte
	)

	err := r.db.Pool().QueryRow(ctx, query, walletAddress).Scan(
		&identity.WalletAddress,
		&identity.Verified,
		&disclosed,
		&fitnessJSON,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	if len(disclosed) > 0 {
		if err := json.Unmarshal(disclosed, &identity.Disclosed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal disclosed fields: %w", err)
		}
	}
	if len(fitnessJSON) > 0 {
		var account models.FitnessAccount
		if err := json.Unmarshal(fitnessJSON, &account); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fitness account: %w", err)
		}
		identity.FitnessAccount = &account
	}

	return &identity, nil
}

// SetVerified marks a wallet as verified and stores its disclosed fields.
// The verified flag is never cleared here; repeating the call is a no-op
// beyond refreshing the disclosed values.
func (r *IdentityRepository) SetVerified(ctx context.Context, walletAddress string, disclosed map[string]string) error {
	disclosedJSON, err := json.Marshal(disclosed)
	if err != nil {
		return fmt.Errorf("failed to marshal disclosed fields: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO identities (wallet_address, verified, disclosed, created_at, updated_at)
		VALUES ($1, TRUE, $2, $3, $3)
		ON CONFLICT (wallet_address) DO UPDATE
		SET verified = TRUE, disclosed = EXCLUDED.disclosed, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Pool().Exec(ctx, query, walletAddress, disclosedJSON, now); err != nil {
		return fmt.Errorf("failed to set verified flag: %w", err)
	}
	return nil
}

// SetFitnessAccount stores the linked account (athlete profile + credential)
// for a wallet, creating the record if the wallet has none yet.
func (r *IdentityRepository) SetFitnessAccount(ctx context.Context, walletAddress string, account *models.FitnessAccount) error {
	accountJSON, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal fitness account: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO identities (wallet_address, verified, fitness_account, created_at, updated_at)
		VALUES ($1, FALSE, $2, $3, $3)
		ON CONFLICT (wallet_address) DO UPDATE
		SET fitness_account = EXCLUDED.fitness_account, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Pool().Exec(ctx, query, walletAddress, accountJSON, now); err != nil {
		return fmt.Errorf("failed to set fitness account: %w", err)
	}
	return nil
}

// Delete removes the record for a wallet address. Deleting an absent
// record is not an error.
func (r *IdentityRepository) Delete(ctx context.Context, walletAddress string) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM identities WHERE wallet_address = $1`, walletAddress); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}
