package service

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// PaymentService tracks payments against orders. The provider itself is
// external; its outcome arrives through ProcessPayment.
type PaymentService struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	flusher  *outbox.Flusher
	log      *logger.Logger
	opts     options
}

func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	flusher *outbox.Flusher,
	log *logger.Logger,
	opts ...Option,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		flusher:  flusher,
		log:      log.With("component", "PaymentService"),
		opts:     buildOptions(opts),
	}
}

// CreatePaymentIntent opens a payment for the order total. Asking again for
// the same order returns the payment already created.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID, orderID string) (*PaymentDTO, error) {
	const op = "service.PaymentService.CreatePaymentIntent"

	// 1. Idempotency
	existing, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	if existing != nil {
		s.log.Info("Payment already exists (idempotency)", "order_id", orderID, "payment_id", existing.ID)
		return toPaymentDTO(existing), nil
	}

	// 2. The order must still be awaiting payment
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil || (userID != "" && order.UserID() != userID) {
		return nil, notFound(op, "order", orderID)
	}
	if st := order.Status(); st != entity.OrderStatusPending && st != entity.OrderStatusPaymentPending {
		return nil, entity.Errorf(entity.CodeInvalidStateTransition, op, "order %s is %s", orderID, st)
	}

	// 3. Create, persist, publish
	payment, err := entity.NewPayment(orderID, order.Total(), s.opts.provider)
	if err != nil {
		return nil, err
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		if entity.IsCode(err, entity.CodeConflict) {
			// Lost a race with a concurrent request for the same order.
			if winner, findErr := s.payments.FindByOrderID(ctx, orderID); findErr == nil && winner != nil {
				return toPaymentDTO(winner), nil
			}
		}
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	s.log.Info("Payment intent created", "order_id", orderID, "payment_id", payment.ID, "amount", payment.Amount().String())
	return s.flush(ctx, payment)
}

// ProcessPaymentInput is the provider's verdict on a payment.
type ProcessPaymentInput struct {
	PaymentID     string `json:"paymentId"`
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	FailureReason string `json:"failureReason"`
}

// ProcessPayment applies a provider webhook. A verdict the payment already
// reflects is accepted again without changes.
func (s *PaymentService) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (*PaymentDTO, error) {
	payment, err := s.load(ctx, "service.PaymentService.ProcessPayment", in.PaymentID)
	if err != nil {
		return nil, err
	}

	switch {
	case in.Success && payment.Status() == entity.PaymentStatusSucceeded,
		!in.Success && payment.Status() == entity.PaymentStatusFailed:
		return toPaymentDTO(payment), nil
	case in.Success:
		if payment.Status() == entity.PaymentStatusPending {
			if err := payment.MarkAsProcessing(in.TransactionID); err != nil {
				return nil, err
			}
		}
		if err := payment.MarkAsSucceeded(in.TransactionID); err != nil {
			return nil, err
		}
	default:
		reason := in.FailureReason
		if reason == "" {
			reason = "unknown error"
		}
		if err := payment.MarkAsFailed(reason); err != nil {
			return nil, err
		}
	}

	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	s.log.Info("Payment processed", "payment_id", payment.ID, "status", payment.Status())
	return s.flush(ctx, payment)
}

func (s *PaymentService) RefundPayment(ctx context.Context, paymentID, reason string) (*PaymentDTO, error) {
	payment, err := s.load(ctx, "service.PaymentService.RefundPayment", paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkAsRefunded(reason); err != nil {
		return nil, err
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	return s.flush(ctx, payment)
}

func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*PaymentDTO, error) {
	payment, err := s.load(ctx, "service.PaymentService.GetPayment", paymentID)
	if err != nil {
		return nil, err
	}
	return toPaymentDTO(payment), nil
}

func (s *PaymentService) load(ctx context.Context, op, paymentID string) (*entity.Payment, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, notFound(op, "payment", paymentID)
	}
	return payment, nil
}

func (s *PaymentService) flush(ctx context.Context, payment *entity.Payment) (*PaymentDTO, error) {
	dto := toPaymentDTO(payment)
	if err := s.flusher.Flush(ctx, payment); err != nil {
		return nil, err
	}
	return dto, nil
}
