package security

import (
	"context"
	"fmt"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

// EncryptedPendingRepository wraps a pending package repository, encrypting
// payloads on the way in and decrypting on the way out. Entries whose payload
// does not decrypt are surfaced as read errors, not silently dropped.
type EncryptedPendingRepository struct {
	inner  ports.PendingPackageRepository
	cipher *PayloadCipher
}

func NewEncryptedPendingRepository(inner ports.PendingPackageRepository, cipher *PayloadCipher) *EncryptedPendingRepository {
	return &EncryptedPendingRepository{inner: inner, cipher: cipher}
}

var _ ports.PendingPackageRepository = (*EncryptedPendingRepository)(nil)

func (r *EncryptedPendingRepository) Put(ctx context.Context, entry domain.PendingPackage) error {
	sealed, err := r.cipher.Encrypt(entry.ClientID, entry.Payload)
	if err != nil {
		return fmt.Errorf("encrypt pending payload: %w", err)
	}
	entry.Payload = sealed
	return r.inner.Put(ctx, entry)
}

func (r *EncryptedPendingRepository) GetByScope(ctx context.Context, clientID, businessID int64) ([]domain.PendingPackage, error) {
	entries, err := r.inner.GetByScope(ctx, clientID, businessID)
	if err != nil {
		return nil, err
	}
	return r.decryptAll(entries)
}

func (r *EncryptedPendingRepository) ScanAll(ctx context.Context) ([]domain.PendingPackage, error) {
	entries, err := r.inner.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.decryptAll(entries)
}

func (r *EncryptedPendingRepository) Delete(ctx context.Context, clientID int64, sortKey string) error {
	return r.inner.Delete(ctx, clientID, sortKey)
}

func (r *EncryptedPendingRepository) decryptAll(entries []domain.PendingPackage) ([]domain.PendingPackage, error) {
	for i := range entries {
		plain, err := r.cipher.Decrypt(entries[i].ClientID, entries[i].Payload)
		if err != nil {
			return nil, fmt.Errorf("decrypt pending payload %s: %w", entries[i].SortKey, err)
		}
		entries[i].Payload = plain
	}
	return entries, nil
}
