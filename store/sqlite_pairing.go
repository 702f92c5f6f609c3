package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/ikimiz/models"
	"github.com/akinalp/ikimiz/pkg"
)

// sqlitePairingStore, PairingStore interface'inin SQLite implementasyonu.
type sqlitePairingStore struct {
	db *sql.DB
}

// NewSQLitePairingStore, constructor — interface döner.
func NewSQLitePairingStore(db *sql.DB) PairingStore {
	return &sqlitePairingStore{db: db}
}

// LatestAccepted, kullanıcının dahil olduğu en güncel "accepted" eşleşmeyi döner.
// Kullanıcı davetin iki tarafından biri olabilir — her iki kolon da kontrol edilir.
func (s *sqlitePairingStore) LatestAccepted(ctx context.Context, userID string) (*models.Pairing, error) {
	query := `
		SELECT id, user_id, partner_id, status, created_at, updated_at
		FROM pairings
		WHERE (user_id = ? OR partner_id = ?) AND status = ?
		ORDER BY updated_at DESC
		LIMIT 1`

	var p models.Pairing
	err := s.db.QueryRowContext(ctx, query, userID, userID, models.PairingStatusAccepted).Scan(
		&p.ID, &p.UserID, &p.PartnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no accepted pairing for user", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query accepted pairing: %w", err)
	}

	return &p, nil
}

// Create, yeni bir pending eşleşme daveti oluşturur.
func (s *sqlitePairingStore) Create(ctx context.Context, userID, partnerID string) (*models.Pairing, error) {
	now := time.Now().UTC()
	p := &models.Pairing{
		ID:        uuid.NewString(),
		UserID:    userID,
		PartnerID: partnerID,
		Status:    models.PairingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO pairings (id, user_id, partner_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.PartnerID, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create pairing: %w", err)
	}

	return p, nil
}

// Accept, pending bir daveti kabul eder.
// Kayıt yoksa veya zaten accepted/ended ise pkg.ErrNotFound döner.
func (s *sqlitePairingStore) Accept(ctx context.Context, pairingID string) error {
	query := `
		UPDATE pairings SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, query,
		models.PairingStatusAccepted, time.Now().UTC(), pairingID, models.PairingStatusPending)
	if err != nil {
		return fmt.Errorf("failed to accept pairing: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pending pairing not found", pkg.ErrNotFound)
	}
	return nil
}
