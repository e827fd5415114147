package patrons

import "time"

// Patron は patrons テーブルの1行を表す
type Patron struct {
	PatronID  string
	Name      string
	CreatedAt time.Time
}

// ActiveLoan はステータスレポート用の未返却貸出行（books を JOIN）
type ActiveLoan struct {
	LoanID     int64
	LoanULID   string
	ISBN       string
	Title      string
	Author     string
	BorrowDate time.Time
	DueDate    time.Time
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
