package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

type pendingPackageRepository struct {
	db *gorm.DB
}

// NewPendingPackageRepository returns the postgres-backed pending store.
func NewPendingPackageRepository(db *gorm.DB) ports.PendingPackageRepository {
	return &pendingPackageRepository{db: db}
}

func (r *pendingPackageRepository) Put(ctx context.Context, entry domain.PendingPackage) error {
	rec := pendingPackageModel{
		ClientID:      entry.ClientID,
		SortKey:       entry.SortKey,
		Payload:       string(entry.Payload),
		MessageDate:   entry.MessageDate,
		LastAttemptAt: entry.LastAttemptAt,
		ErrorCode:     entry.ErrorCode,
		ErrorMessage:  entry.ErrorMessage,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("put pending package: %w", err)
	}
	return nil
}

func (r *pendingPackageRepository) GetByScope(ctx context.Context, clientID, businessID int64) ([]domain.PendingPackage, error) {
	var rows []pendingPackageModel
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND sort_key LIKE ?", clientID, domain.SortKeyPrefix(businessID)+"%").
		Order("message_date asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get pending packages: %w", err)
	}
	return toEntries(rows), nil
}

func (r *pendingPackageRepository) ScanAll(ctx context.Context) ([]domain.PendingPackage, error) {
	var rows []pendingPackageModel
	if err := r.db.WithContext(ctx).Order("message_date asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan pending packages: %w", err)
	}
	return toEntries(rows), nil
}

func (r *pendingPackageRepository) Delete(ctx context.Context, clientID int64, sortKey string) error {
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND sort_key = ?", clientID, sortKey).
		Delete(&pendingPackageModel{}).Error
	if err != nil {
		return fmt.Errorf("delete pending package: %w", err)
	}
	return nil
}

func toEntries(rows []pendingPackageModel) []domain.PendingPackage {
	out := make([]domain.PendingPackage, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.PendingPackage{
			ClientID:      row.ClientID,
			SortKey:       row.SortKey,
			Payload:       []byte(row.Payload),
			MessageDate:   row.MessageDate,
			LastAttemptAt: row.LastAttemptAt,
			ErrorCode:     row.ErrorCode,
			ErrorMessage:  row.ErrorMessage,
		})
	}
	return out
}
