package fees

import "time"

// 延滞料金支払いリクエスト
type PayFeesRequest struct {
	PatronID string `json:"patron_id" binding:"required"`
	ISBN     string `json:"isbn" binding:"required"`
}

type PaymentResponse struct {
	PaymentULID   string    `json:"payment_ulid"`
	TransactionID string    `json:"transaction_id"`
	LoanULID      string    `json:"loan_ulid"`
	ISBN          string    `json:"isbn"`
	PatronID      string    `json:"patron_id"`
	Amount        float64   `json:"amount"`
	DaysOverdue   int       `json:"days_overdue"`
	PaidAt        time.Time `json:"paid_at"`
}

// 返金リクエスト
type RefundRequest struct {
	TransactionID string  `json:"transaction_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
}

type RefundResponse struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Refunded      bool    `json:"refunded"`
}

func paymentToDTO(p *Payment, loanULID, isbn string, daysOverdue int) PaymentResponse {
	return PaymentResponse{
		PaymentULID:   p.PaymentULID,
		TransactionID: p.TransactionID,
		LoanULID:      loanULID,
		ISBN:          isbn,
		PatronID:      p.PatronID,
		Amount:        p.Amount,
		DaysOverdue:   daysOverdue,
		PaidAt:        p.PaidAt,
	}
}
