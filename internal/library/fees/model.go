package fees

import "time"

// Payment は fee_payments テーブルの1行を表す
type Payment struct {
	PaymentID     int64
	PaymentULID   string
	LoanID        int64
	PatronID      string
	Amount        float64
	TransactionID string
	Refunded      bool
	PaidAt        time.Time
}

// PaymentRecord は貸出情報付きの支払い履歴行
type PaymentRecord struct {
	Payment
	LoanULID string
	ISBN     string
}

// OwedLoan は延滞料金計算に必要な貸出側の情報
type OwedLoan struct {
	LoanID   int64
	LoanULID string
	ISBN     string
	Title    string
	DueDate  time.Time
}
