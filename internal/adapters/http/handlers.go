package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

// NotificationHandler processes one replication notification payload.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, payload []byte) error
}

type Handler struct {
	notifications NotificationHandler
	pending       ports.PendingPackageRepository
}

func NewHandler(notifications NotificationHandler, pending ports.PendingPackageRepository) *Handler {
	return &Handler{notifications: notifications, pending: pending}
}

// postNotification accepts a raw package payload, for manual injection and
// for environments where the notification bus is not wired.
func (h *Handler) postNotification(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body")
		return
	}
	if err := h.notifications.HandleNotification(r.Context(), payload); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeMessage(w, http.StatusOK, "replicated")
}

// postReplay triggers a replay of every pending package across all scopes.
func (h *Handler) postReplay(w http.ResponseWriter, r *http.Request) {
	payload, err := json.Marshal(map[string]any{"TipoMensaje": domain.MessageTypeReplayAll})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	if err := h.notifications.HandleNotification(r.Context(), payload); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeMessage(w, http.StatusOK, "replayed")
}

type pendingEntryView struct {
	ClientID      int64     `json:"client_id"`
	SortKey       string    `json:"sort_key"`
	MessageDate   time.Time `json:"message_date"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
	ErrorCode     int       `json:"error_code"`
	ErrorMessage  string    `json:"error_message"`
	Records       int       `json:"records"`
}

// getPending lists stored pending packages, optionally narrowed to one
// (client_id, business_id) scope.
func (h *Handler) getPending(w http.ResponseWriter, r *http.Request) {
	var (
		entries []domain.PendingPackage
		err     error
	)
	clientRaw := r.URL.Query().Get("client_id")
	businessRaw := r.URL.Query().Get("business_id")
	if clientRaw != "" && businessRaw != "" {
		clientID, cErr := strconv.ParseInt(clientRaw, 10, 64)
		businessID, bErr := strconv.ParseInt(businessRaw, 10, 64)
		if cErr != nil || bErr != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "client_id and business_id must be integers")
			return
		}
		entries, err = h.pending.GetByScope(r.Context(), clientID, businessID)
	} else {
		entries, err = h.pending.ScanAll(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "pending store unavailable")
		return
	}

	views := make([]pendingEntryView, 0, len(entries))
	for _, entry := range entries {
		view := pendingEntryView{
			ClientID:      entry.ClientID,
			SortKey:       entry.SortKey,
			MessageDate:   entry.MessageDate,
			LastAttemptAt: entry.LastAttemptAt,
			ErrorCode:     entry.ErrorCode,
			ErrorMessage:  entry.ErrorMessage,
		}
		if pkg, decodeErr := domain.DecodePackage(entry.Payload); decodeErr == nil {
			view.Records = len(pkg.Records)
		}
		views = append(views, view)
	}
	writeSuccess(w, http.StatusOK, views)
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrParse):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "pending store unavailable"
	case errors.Is(err, domain.ErrPackageFailed):
		// The remainder is persisted; the request did its job.
		return http.StatusAccepted, "PACKAGE_DEFERRED", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
