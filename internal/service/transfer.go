package service

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/storage"
	"github.com/obralink/backend/internal/telemetry"
)

// TransferStore persists bank transfers and their linked payments.
type TransferStore interface {
	TransferByID(ctx context.Context, id uuid.UUID) (*domain.BankTransfer, error)
	CourseIDByOrderID(ctx context.Context, orderID string) (uuid.UUID, error)
	UpdateTransferReceipt(ctx context.Context, id, paymentID uuid.UUID, courseID uuid.UUID, receiptURL string) error
	InsertPayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
}

// TransferService handles the manual bank-transfer receipt flow.
type TransferService interface {
	// UploadReceipt attaches a receipt file to a pending transfer,
	// creating (or reusing) its pending payment, and moves the
	// transfer into review. Returns the stored receipt URL.
	UploadReceipt(ctx context.Context, transferID uuid.UUID, fileName string, data []byte) (string, error)
}

var allowedReceiptExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type transferService struct {
	store   TransferStore
	files   storage.Storage
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewTransferService creates a TransferService using the given file
// storage backend for receipts.
func NewTransferService(
	store TransferStore,
	files storage.Storage,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) TransferService {
	return &transferService{
		store:   store,
		files:   files,
		metrics: metrics,
		logger:  logger,
	}
}

// UploadReceipt validates everything that can fail before touching
// storage, so a transfer that can never be fulfilled does not leave an
// orphaned upload behind. The endpoint is idempotent with respect to
// payment creation: a re-upload reuses the payment linked on the first
// attempt.
func (s *transferService) UploadReceipt(ctx context.Context, transferID uuid.UUID, fileName string, data []byte) (string, error) {
	actor := domain.UserFromContext(ctx)
	if actor == nil {
		return "", ErrSessionRequired
	}

	transfer, err := s.store.TransferByID(ctx, transferID)
	if err != nil {
		return "", s.fail("lookup", err)
	}
	if transfer.UserID != actor.ID {
		// Not-owned reads as not-found so transfer ids are not
		// probeable across accounts.
		return "", s.fail("ownership", ErrTransferNotFound)
	}
	if transfer.Status != domain.TransferPending {
		return "", s.fail("state", ErrTransferNotPending)
	}

	courseID, err := s.resolveCourse(ctx, transfer)
	if err != nil {
		return "", s.fail("course", err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := allowedReceiptExtensions[ext]
	if !ok {
		return "", s.fail("extension", ErrUnsupportedReceiptType)
	}
	if len(data) == 0 {
		return "", s.fail("empty", ErrEmptyReceipt)
	}

	key := "receipts/" + transfer.ID.String() + ext
	receiptURL, err := s.files.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return "", s.fail("upload", err)
	}

	payment, createdHere, err := s.ensurePayment(ctx, transfer, courseID)
	if err != nil {
		return "", s.fail("payment", err)
	}

	if err := s.store.UpdateTransferReceipt(ctx, transfer.ID, payment.ID, courseID, receiptURL); err != nil {
		if createdHere {
			s.rollbackPayment(ctx, payment)
		}
		return "", s.fail("update", err)
	}

	s.metrics.ReceiptUploads.WithLabelValues().Inc()
	s.logger.Info("receipt uploaded",
		"transfer_id", transfer.ID,
		"payment_id", payment.ID,
		"course_id", courseID,
	)
	return receiptURL, nil
}

// resolveCourse returns the transfer's course, falling back to the
// originating checkout session for legacy rows that predate the
// course_id column.
func (s *transferService) resolveCourse(ctx context.Context, transfer *domain.BankTransfer) (uuid.UUID, error) {
	if transfer.CourseID != nil {
		return *transfer.CourseID, nil
	}
	if transfer.OrderID == nil || *transfer.OrderID == "" {
		return uuid.Nil, ErrMissingProductReference
	}
	courseID, err := s.store.CourseIDByOrderID(ctx, *transfer.OrderID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return uuid.Nil, ErrMissingProductReference
		}
		return uuid.Nil, err
	}
	return courseID, nil
}

// ensurePayment returns the transfer's payment, creating a pending one
// on first upload. The provider payment id stays null until a reviewer
// confirms the transfer, which is why the payments unique index
// excludes nulls.
func (s *transferService) ensurePayment(ctx context.Context, transfer *domain.BankTransfer, courseID uuid.UUID) (*domain.Payment, bool, error) {
	if transfer.PaymentID != nil {
		return &domain.Payment{ID: *transfer.PaymentID}, false, nil
	}

	payment, err := s.store.InsertPayment(ctx, &domain.Payment{
		ID:          uuid.New(),
		Provider:    domain.ProviderBankTransfer,
		UserID:      transfer.UserID,
		ProductType: domain.ProductCourse,
		ProductID:   courseID,
		AmountCents: transfer.AmountCents,
		Currency:    transfer.Currency,
		Status:      domain.PaymentPending,
	})
	if err != nil {
		return nil, false, err
	}
	return payment, true, nil
}

// rollbackPayment undoes a payment created in this call when the final
// transfer update fails, keeping the transfer consistently either
// "no payment yet" or "payment and receipt both recorded".
func (s *transferService) rollbackPayment(ctx context.Context, payment *domain.Payment) {
	if err := s.store.DeletePayment(ctx, payment.ID); err != nil {
		s.metrics.ReconciliationNeeded.WithLabelValues(domain.ProviderBankTransfer).Inc()
		telemetry.CaptureError(err, map[string]interface{}{
			"payment_id": payment.ID.String(),
			"provider":   domain.ProviderBankTransfer,
		})
		s.logger.Error("transfer payment rollback failed, manual reconciliation required",
			"payment_id", payment.ID,
			"error", err,
		)
	}
}

func (s *transferService) fail(reason string, err error) error {
	s.metrics.ReceiptUploadsFailed.WithLabelValues(reason).Inc()
	return err
}
