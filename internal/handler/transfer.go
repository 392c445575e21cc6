package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/middleware"
	"github.com/obralink/backend/internal/service"
)

// maxReceiptBytes bounds the decoded receipt size (10 MiB).
const maxReceiptBytes = 10 << 20

// TransferHandler exposes the bank-transfer receipt upload.
type TransferHandler struct {
	transfers service.TransferService
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(transfers service.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type uploadReceiptRequest struct {
	TransferID     string `json:"transferId"`
	FileName       string `json:"fileName"`
	FileDataBase64 string `json:"fileDataBase64"`
}

type uploadReceiptResponse struct {
	Success    bool   `json:"success"`
	ReceiptURL string `json:"receiptUrl"`
}

// UploadReceipt handles POST /api/transfers/receipt.
func (h *TransferHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	var body uploadReceiptRequest
	limit := int64(base64.StdEncoding.EncodedLen(maxReceiptBytes)) + 4096
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&body); err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Malformed request body"))
		return
	}

	transferID, err := uuid.Parse(body.TransferID)
	if err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "transferId must be a UUID"))
		return
	}

	data, err := base64.StdEncoding.DecodeString(body.FileDataBase64)
	if err != nil {
		ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "fileDataBase64 is not valid base64"))
		return
	}

	receiptURL, err := h.transfers.UploadReceipt(r.Context(), transferID, body.FileName, data)
	if err != nil {
		middleware.GetLogger(r.Context()).Error("uploading receipt",
			"transfer_id", transferID,
			"error", err,
		)
		ErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadReceiptResponse{
		Success:    true,
		ReceiptURL: receiptURL,
	})
}
