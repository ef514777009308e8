package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusSucceeded:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type PaymentState struct {
	OrderID       string
	Amount        Money
	Provider      string
	Status        PaymentStatus
	TransactionID string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Payment tracks one attempt to collect the amount of an order.
type Payment struct {
	AggregateBase
	state PaymentState
}

func NewPayment(orderID string, amount Money, provider string) (*Payment, error) {
	const op = "entity.NewPayment"
	if orderID == "" {
		return nil, NewError(CodeValidation, op, "order id is required", nil)
	}
	if amount.Minor() <= 0 {
		return nil, NewError(CodeValidation, op, "payment amount must be positive", nil)
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, NewError(CodeValidation, op, "provider is required", nil)
	}
	at := now()
	p := &Payment{
		AggregateBase: AggregateBase{ID: uuid.NewString()},
		state: PaymentState{
			OrderID:   orderID,
			Amount:    amount,
			Provider:  provider,
			Status:    PaymentStatusPending,
			CreatedAt: at,
			UpdatedAt: at,
		},
	}
	if err := p.raise(PaymentAggregateType, PaymentInitiated{PaymentID: p.ID, OrderID: orderID, Amount: amount, Provider: provider}); err != nil {
		return nil, err
	}
	return p, nil
}

func RestorePayment(id string, version int, state PaymentState) *Payment {
	return &Payment{AggregateBase: AggregateBase{ID: id, Version: version}, state: state}
}

func (p *Payment) AggregateType() string { return PaymentAggregateType }
func (p *Payment) Equals(other Aggregate) bool { return SameAggregate(p, other) }
func (p *Payment) State() PaymentState { return p.state }
func (p *Payment) OrderID() string { return p.state.OrderID }
func (p *Payment) Status() PaymentStatus { return p.state.Status }
func (p *Payment) Amount() Money { return p.state.Amount }

func (p *Payment) MarkAsProcessing(transactionID string) error {
	next, err := p.advance(PaymentStatusProcessing)
	if err != nil {
		return err
	}
	next.TransactionID = transactionID
	return p.commit(next, PaymentProcessing{PaymentID: p.ID, OrderID: p.state.OrderID, TransactionID: transactionID})
}

// MarkAsSucceeded completes a processing payment. An empty transactionID keeps
// the one recorded by MarkAsProcessing.
func (p *Payment) MarkAsSucceeded(transactionID string) error {
	next, err := p.advance(PaymentStatusSucceeded)
	if err != nil {
		return err
	}
	if transactionID != "" {
		next.TransactionID = transactionID
	}
	return p.commit(next, PaymentSucceeded{
		PaymentID:     p.ID,
		OrderID:       p.state.OrderID,
		Amount:        p.state.Amount,
		TransactionID: next.TransactionID,
	})
}

func (p *Payment) MarkAsFailed(reason string) error {
	next, err := p.advance(PaymentStatusFailed)
	if err != nil {
		return err
	}
	next.FailureReason = reason
	return p.commit(next, PaymentFailed{PaymentID: p.ID, OrderID: p.state.OrderID, Reason: reason})
}

// MarkAsRefunded refunds the full amount. Only succeeded payments can be refunded.
func (p *Payment) MarkAsRefunded(reason string) error {
	next, err := p.advance(PaymentStatusRefunded)
	if err != nil {
		return err
	}
	return p.commit(next, PaymentRefunded{PaymentID: p.ID, OrderID: p.state.OrderID, Amount: p.state.Amount, Reason: reason})
}

func (p *Payment) advance(to PaymentStatus) (PaymentState, error) {
	if !p.state.Status.CanTransitionTo(to) {
		return p.state, Errorf(CodeInvalidStateTransition, "entity.Payment", "cannot transition payment from %s to %s", p.state.Status, to)
	}
	next := p.state
	next.Status = to
	return next, nil
}

func (p *Payment) commit(next PaymentState, e Event) error {
	if err := p.raise(PaymentAggregateType, e); err != nil {
		return err
	}
	next.UpdatedAt = now()
	p.state = next
	return nil
}
