package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PackageKindCRM tags pending entries produced by this replication target, so
// the same store could partition pending work for other targets.
const PackageKindCRM = 2

// ErrorCodeUnresolved is the error code a pending entry carries until someone
// triages it; the engine itself only ever writes this value.
const ErrorCodeUnresolved = -1

// PendingPackage is the persisted unapplied remainder of a package that failed
// mid-execution. ClientID is the partition key; SortKey is unique per failure
// event so concurrent failures in the same scope never overwrite each other.
type PendingPackage struct {
	ClientID      int64
	SortKey       string
	Payload       []byte
	MessageDate   time.Time
	LastAttemptAt time.Time
	ErrorCode     int
	ErrorMessage  string
}

// NewSortKey builds the two-part range key "{business}-{packageKind}-{suffix}".
// The random suffix makes every failure event a distinct item.
func NewSortKey(businessID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%d-%s", businessID, PackageKindCRM, suffix)
}

// SortKeyPrefix is the scope prefix shared by every pending entry of one
// (client, business) pair; GetByScope matches on it.
func SortKeyPrefix(businessID int64) string {
	return fmt.Sprintf("%d-%d-", businessID, PackageKindCRM)
}

// NewPendingPackage snapshots a failed package's remainder for later replay.
// MessageDate always reflects the original package's timestamp, never the
// retry time, so FIFO ordering survives repeated failures.
func NewPendingPackage(pkg *Package, payload []byte, attemptAt time.Time, cause error) PendingPackage {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return PendingPackage{
		ClientID:      pkg.ClientID,
		SortKey:       NewSortKey(pkg.BusinessID),
		Payload:       payload,
		MessageDate:   pkg.MessageDate,
		LastAttemptAt: attemptAt,
		ErrorCode:     ErrorCodeUnresolved,
		ErrorMessage:  msg,
	}
}
