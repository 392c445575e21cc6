package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/storage"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EUNAVAILABLE, http.StatusBadGateway},
		{domain.EPRICING, http.StatusInternalServerError},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorResponse_JSON(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found error",
			err:            domain.Errorf(domain.ENOTFOUND, "course.get", "Course not found."),
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "validation error",
			err:            domain.Errorf(domain.EINVALID, "checkout.create", "Unknown product type."),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "forbidden error",
			err:            domain.Errorf(domain.EFORBIDDEN, "checkout.create", "Administrator role required."),
			expectedStatus: http.StatusForbidden,
			expectedCode:   domain.EFORBIDDEN,
		},
		{
			name:           "payment error",
			err:            domain.Errorf(domain.EPAYMENT, "capture", "The payment was not approved."),
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   domain.EPAYMENT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Accept", "application/json")
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var response struct {
				Error  string `json:"error"`
				Status int    `json:"status"`
				Reason string `json:"reason"`
			}

			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if response.Reason != tt.expectedCode {
				t.Errorf("reason = %q, want %q", response.Reason, tt.expectedCode)
			}
			if response.Status != tt.expectedStatus {
				t.Errorf("status field = %d, want %d", response.Status, tt.expectedStatus)
			}
			if response.Error == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestErrorResponse_StorageError(t *testing.T) {
	// Storage errors carry codes from the domain set through their own
	// ErrorCode method; they must map to the matching HTTP status
	// instead of collapsing to 500.
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, storage.ErrFileNotFound("receipts/abc.pdf"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var response struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Reason != domain.ENOTFOUND {
		t.Errorf("reason = %q, want %q", response.Reason, domain.ENOTFOUND)
	}
	if response.Error != "file not found: receipts/abc.pdf" {
		t.Errorf("error = %q", response.Error)
	}
}

func TestErrorResponse_HTML(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	err := domain.Errorf(domain.ENOTFOUND, "course.get", "Course not found.")
	ErrorResponse(rec, req, err)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// Should be plain text, not JSON
	body := rec.Body.String()
	if body == "" {
		t.Error("response body should not be empty")
	}
	if ct := rec.Header().Get("Content-Type"); ct == "application/json" {
		t.Errorf("Content-Type = %q, want plain text", ct)
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "internal error",
			err:  domain.Errorf(domain.EINTERNAL, "db.query", "failed to connect to database at 192.168.1.100:5432"),
		},
		{
			name: "pricing error",
			err:  domain.Errorf(domain.EPRICING, "pricing.rate", "no active exchange rate for ARS"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Accept", "application/json")
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
			}

			var response struct {
				Error string `json:"error"`
			}

			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			expected := "An internal error occurred. Please try again later."
			if response.Error != expected {
				t.Errorf("error = %q, want %q", response.Error, expected)
			}
		})
	}
}
