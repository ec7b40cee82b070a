package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldChatID        = "chat_id"
	FieldUserID        = "user_id"
	FieldFlow          = "flow"
	FieldState         = "state"
	FieldNextState     = "next_state"
	FieldEvent         = "event"
	FieldOutcome       = "outcome"
	FieldExpenseID     = "expense_id"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldPaymentMethod = "payment_method"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldRows          = "rows"
	FieldFile          = "file"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBot      = "bot"
	ComponentForm     = "form"
	ComponentSession  = "session"
	ComponentExpense  = "expense"
	ComponentStorage  = "storage"
	ComponentExport   = "export"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentTelegram = "telegram"
)

// Operations defines standard operation names
const (
	OpUpsertUser = "upsert_user"
	OpInsert     = "insert"
	OpQuery      = "query"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpAppend     = "append"
	OpRender     = "render"
	OpSend       = "send"
	OpSweep      = "sweep"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithCorrelationID(id string) LogFields {
	if id != "" {
		f[FieldCorrelationID] = id
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithChat adds the external chat id.
func (f LogFields) WithChat(chatID string) LogFields {
	f[FieldChatID] = chatID
	return f
}

// WithStep adds the form position of an event.
func (f LogFields) WithStep(flow, state, event string) LogFields {
	f[FieldFlow] = flow
	f[FieldState] = state
	f[FieldEvent] = event
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id int64, amountCents int64, category, method string) LogFields {
	if id != 0 {
		f[FieldExpenseID] = id
	}
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	f[FieldPaymentMethod] = method
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
