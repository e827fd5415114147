package loans

import "time"

// 貸出リクエスト
type BorrowRequest struct {
	ISBN     string `json:"isbn" binding:"required"`
	PatronID string `json:"patron_id" binding:"required"`
}

// 返却リクエスト。貸出と同じ (isbn, patron) ペアを参照する
type ReturnRequest struct {
	ISBN     string `json:"isbn" binding:"required"`
	PatronID string `json:"patron_id" binding:"required"`
}

// 貸出レスポンス
type LoanResponse struct {
	LoanID     int64      `json:"loan_id"`
	LoanULID   string     `json:"loan_ulid"`
	ISBN       string     `json:"isbn"`
	Title      string     `json:"title,omitempty"`
	PatronID   string     `json:"patron_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Active     bool       `json:"active"`
}

// 返却レスポンス。確定した延滞料金を含む
type ReturnResponse struct {
	LoanULID    string    `json:"loan_ulid"`
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title,omitempty"`
	PatronID    string    `json:"patron_id"`
	ReturnedAt  time.Time `json:"returned_at"`
	DaysOverdue int       `json:"days_overdue"`
	LateFee     float64   `json:"late_fee"`
}

// 未返却貸出の延滞状況
type LoanFeeResponse struct {
	LoanULID    string  `json:"loan_ulid"`
	ISBN        string  `json:"isbn"`
	PatronID    string  `json:"patron_id"`
	DaysOverdue int     `json:"days_overdue"`
	FeeAmount   float64 `json:"fee_amount"`
}

func loanToDTO(r *loanRow) LoanResponse {
	resp := LoanResponse{
		LoanID:     r.LoanID,
		LoanULID:   r.LoanULID,
		ISBN:       r.ISBN,
		Title:      r.Title,
		PatronID:   r.PatronID,
		BorrowDate: r.BorrowDate,
		DueDate:    r.DueDate,
		Active:     r.Active(),
	}
	if r.ReturnDate.Valid {
		v := r.ReturnDate.Time
		resp.ReturnDate = &v
	}
	return resp
}
