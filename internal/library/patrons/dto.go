package patrons

import "time"

// ===== Requests =====

type RegisterPatronRequest struct {
	PatronID string `json:"patron_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// ===== Responses =====

type PatronResponse struct {
	PatronID  string    `json:"patron_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BorrowedBook はステータスレポート内の1冊分
type BorrowedBook struct {
	LoanULID      string    `json:"loan_ulid"`
	ISBN          string    `json:"isbn"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	BorrowDate    time.Time `json:"borrow_date"`
	DueDate       time.Time `json:"due_date"`
	IsOverdue     bool      `json:"is_overdue"`
	DaysOverdue   int       `json:"days_overdue"`
	DaysRemaining int       `json:"days_remaining"`
	AccruedFee    float64   `json:"accrued_fee"`
}

// StatusReport は利用者の貸出状況と延滞料金のまとめ
type StatusReport struct {
	PatronID           string         `json:"patron_id"`
	Name               string         `json:"name"`
	BorrowedCount      int            `json:"borrowed_count"`
	RemainingAllowance int            `json:"remaining_allowance"`
	OverdueCount       int            `json:"overdue_count"`
	NextDueDate        *time.Time     `json:"next_due_date,omitempty"`
	TotalFeesOwed      float64        `json:"total_fees_owed"`
	BorrowedBooks      []BorrowedBook `json:"borrowed_books"`
}

func toDTO(p *Patron) PatronResponse {
	return PatronResponse{PatronID: p.PatronID, Name: p.Name, CreatedAt: p.CreatedAt}
}
