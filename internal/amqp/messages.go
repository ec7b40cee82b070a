package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExpenseRecordedMessage announces a stored expense. The mirror worker loads
// the full row by ExpenseID; the other fields are for logs and routing.
type ExpenseRecordedMessage struct {
	ExpenseID     int64     `json:"expense_id"`
	UserID        int64     `json:"user_id"`
	AmountCents   int64     `json:"amount_cents"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"payment_method"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewExpenseRecordedMessage(expenseID, userID, amountCents int64, category, method, correlationID string) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ExpenseID:     expenseID,
		UserID:        userID,
		AmountCents:   amountCents,
		Category:      category,
		PaymentMethod: method,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ExpenseID <= 0 {
		return nil, errors.New("message without expense id")
	}
	return &msg, nil
}
