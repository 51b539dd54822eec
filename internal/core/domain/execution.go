package domain

import "github.com/shopspring/decimal"

// ExecutionSummary tallies per-item outcomes of a handler run.
type ExecutionSummary struct {
	TotalProcessed int `json:"totalProcessed"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
}

// InvoiceOutcome describes what happened for one beneficiary.
type InvoiceOutcome struct {
	Success       bool            `json:"success"`
	Skipped       bool            `json:"skipped,omitempty"`
	InvoiceID     *string         `json:"invoiceId,omitempty"`
	InvoiceNumber *string         `json:"invoiceNumber,omitempty"`
	RecipientID   string          `json:"recipientId,omitempty"`
	RecipientName string          `json:"recipientName"`
	Amount        decimal.Decimal `json:"amount"`
	Error         *string         `json:"error,omitempty"`
}

// ExecutionDetails is the structured payload stored with an execution.
type ExecutionDetails struct {
	Summary  ExecutionSummary `json:"summary"`
	Invoices []InvoiceOutcome `json:"invoices"`
}

// ExecutionResult is returned by every rule handler.
type ExecutionResult struct {
	Status          ExecutionStatus  `json:"status"`
	InvoicesCreated int              `json:"invoicesCreated"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	ErrorMessage    *string          `json:"errorMessage,omitempty"`
	Details         ExecutionDetails `json:"details"`
}

// AggregateStatus derives the run status from its tallies: failed only when
// every processed item failed, partial when failures coexist with other
// outcomes, success otherwise.
func AggregateStatus(s ExecutionSummary) ExecutionStatus {
	switch {
	case s.Failed == 0:
		return ExecutionSuccess
	case s.Failed >= s.TotalProcessed:
		return ExecutionFailed
	default:
		return ExecutionPartial
	}
}

// ResultRecorder accumulates invoice outcomes into an ExecutionResult.
type ResultRecorder struct {
	result ExecutionResult
}

// NewResultRecorder returns an empty recorder.
func NewResultRecorder() *ResultRecorder {
	return &ResultRecorder{result: ExecutionResult{
		TotalAmount: decimal.Zero,
		Details:     ExecutionDetails{Invoices: []InvoiceOutcome{}},
	}}
}

// Success records an item that produced (or, in a dry run, would produce) an invoice.
// invoiceID is nil for previews.
func (r *ResultRecorder) Success(recipientID, recipientName string, amount decimal.Decimal, invoiceID, invoiceNumber *string) {
	r.result.Details.Summary.TotalProcessed++
	r.result.Details.Summary.Successful++
	if invoiceID != nil {
		r.result.InvoicesCreated++
	}
	r.result.TotalAmount = r.result.TotalAmount.Add(amount)
	r.result.Details.Invoices = append(r.result.Details.Invoices, InvoiceOutcome{
		Success:       true,
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		RecipientID:   recipientID,
		RecipientName: recipientName,
		Amount:        amount,
	})
}

// Skip records an item that needed no work.
func (r *ResultRecorder) Skip(recipientID, recipientName, reason string) {
	r.result.Details.Summary.TotalProcessed++
	r.result.Details.Summary.Skipped++
	r.result.Details.Invoices = append(r.result.Details.Invoices, InvoiceOutcome{
		Skipped:       true,
		RecipientID:   recipientID,
		RecipientName: recipientName,
		Amount:        decimal.Zero,
		Error:         &reason,
	})
}

// Fail records an item that could not be processed.
func (r *ResultRecorder) Fail(recipientID, recipientName string, amount decimal.Decimal, err error) {
	msg := err.Error()
	r.result.Details.Summary.TotalProcessed++
	r.result.Details.Summary.Failed++
	r.result.Details.Invoices = append(r.result.Details.Invoices, InvoiceOutcome{
		RecipientID:   recipientID,
		RecipientName: recipientName,
		Amount:        amount,
		Error:         &msg,
	})
}

// Result finalizes the status and returns the accumulated result.
func (r *ResultRecorder) Result() *ExecutionResult {
	res := r.result
	res.Status = AggregateStatus(res.Details.Summary)
	if res.Status == ExecutionFailed {
		msg := "all items failed"
		if n := len(res.Details.Invoices); n > 0 && res.Details.Invoices[n-1].Error != nil {
			msg = *res.Details.Invoices[n-1].Error
		}
		res.ErrorMessage = &msg
	}
	return &res
}

// FailedResult builds the result recorded when a run aborts as a whole.
func FailedResult(err error) *ExecutionResult {
	msg := err.Error()
	return &ExecutionResult{
		Status:       ExecutionFailed,
		TotalAmount:  decimal.Zero,
		ErrorMessage: &msg,
		Details:      ExecutionDetails{Invoices: []InvoiceOutcome{}},
	}
}
