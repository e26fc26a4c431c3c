package contact

import (
	"strings"

	"github.com/akeren/acs-site/internal/models"
	"github.com/akeren/acs-site/pkg/constants"
)

// ContactRequest is the body of POST /api/contact. The server only checks
// presence; format rules live in the form validator.
type ContactRequest struct {
	Name    string `json:"name" form:"name" binding:"required"`
	Email   string `json:"email" form:"email" binding:"required"`
	Subject string `json:"subject" form:"subject" binding:"required"`
	Message string `json:"message" form:"message" binding:"required"`
}

func (r *ContactRequest) hasAllFields() bool {
	return r != nil && r.Name != "" && r.Email != "" && r.Subject != "" && r.Message != ""
}

type ContactResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Response  string `json:"response"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SubmitOptions carries per-request transport metadata.
type SubmitOptions struct {
	IdempotencyKey string
	CorrelationID  string
}

type DispatchRecordResponse struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Provider      string `json:"provider"`
	Outcome       string `json:"outcome"`
	MessageID     string `json:"message_id,omitempty"`
	RelayResponse string `json:"relay_response,omitempty"`
	ErrorDetail   string `json:"error_detail,omitempty"`
	LatencyMs     int64  `json:"latency_ms"`
	CreatedAt     string `json:"created_at"`
}

// ========================================
// Mappers
// ========================================

func ToContactRequest(form *ContactForm) *ContactRequest {
	if form == nil {
		return nil
	}
	return &ContactRequest{
		Name:    form.Name,
		Email:   form.Email,
		Subject: form.Subject,
		Message: form.Message,
	}
}

func ToDispatchRecordResponse(record *models.DispatchRecord) DispatchRecordResponse {
	if record == nil {
		return DispatchRecordResponse{}
	}
	return DispatchRecordResponse{
		ID:            record.ID,
		CorrelationID: record.CorrelationID,
		Provider:      record.Provider,
		Outcome:       record.Outcome,
		MessageID:     record.MessageID,
		RelayResponse: record.RelayResponse,
		ErrorDetail:   record.ErrorDetail,
		LatencyMs:     record.LatencyMs,
		CreatedAt:     record.CreatedAt.Format(constants.RFC3339DateTimeFormat),
	}
}

func normalizeIdempotencyKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) > 128 {
		key = key[:128]
	}
	return key
}
