package security

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/vinco360/crm-replicator/internal/domain"
)

func TestPayloadCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	cipher := NewPayloadCipher("test-seed")
	plain := []byte(`{"IdCliente":7,"ListaRegistros":[]}`)

	sealed, err := cipher.Encrypt(7, plain)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if bytes.Equal(sealed, plain) {
		t.Fatalf("ciphertext must differ from the plaintext")
	}
	opened, err := cipher.Decrypt(7, sealed)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("round trip mismatch: %s", opened)
	}
}

func TestPayloadCipher_KeysArePerClient(t *testing.T) {
	t.Parallel()

	cipher := NewPayloadCipher("test-seed")
	sealed, err := cipher.Encrypt(7, []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if _, err := cipher.Decrypt(8, sealed); err == nil {
		t.Fatalf("another client's key must not open the payload")
	}
}

type memRepo struct {
	entries []domain.PendingPackage
}

func (r *memRepo) Put(_ context.Context, entry domain.PendingPackage) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memRepo) GetByScope(_ context.Context, clientID, _ int64) ([]domain.PendingPackage, error) {
	var out []domain.PendingPackage
	for _, e := range r.entries {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) ScanAll(_ context.Context) ([]domain.PendingPackage, error) {
	return append([]domain.PendingPackage(nil), r.entries...), nil
}

func (r *memRepo) Delete(_ context.Context, _ int64, _ string) error { return nil }

func TestEncryptedPendingRepository(t *testing.T) {
	t.Parallel()

	inner := &memRepo{}
	repo := NewEncryptedPendingRepository(inner, NewPayloadCipher("test-seed"))
	ctx := context.Background()

	payload := []byte(`{"IdCliente":7}`)
	entry := domain.PendingPackage{
		ClientID:    7,
		SortKey:     domain.NewSortKey(3),
		Payload:     payload,
		MessageDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		ErrorCode:   domain.ErrorCodeUnresolved,
	}
	if err := repo.Put(ctx, entry); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if bytes.Equal(inner.entries[0].Payload, payload) {
		t.Fatalf("stored payload must be encrypted")
	}

	got, err := repo.GetByScope(ctx, 7, 3)
	if err != nil {
		t.Fatalf("GetByScope error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Payload, payload) {
		t.Fatalf("read back payload must decrypt to the original, got %+v", got)
	}

	// A payload written under a different seed fails the read, loudly.
	other := NewEncryptedPendingRepository(inner, NewPayloadCipher("other-seed"))
	if _, err := other.ScanAll(ctx); err == nil {
		t.Fatalf("expected a decrypt failure under the wrong seed")
	}
}
