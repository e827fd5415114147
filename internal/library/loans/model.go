package loans

import (
	"database/sql"
	"time"
)

// Loan は loans テーブルの1行を表す
type Loan struct {
	LoanID     int64
	LoanULID   string
	BookID     int64
	PatronID   string
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate sql.NullTime
}

func (l *Loan) Active() bool { return !l.ReturnDate.Valid }

// loanRow は books を JOIN した一覧・詳細用の行
type loanRow struct {
	Loan
	ISBN  string
	Title string
}

// 貸出リスト取得用の検索条件
type LoanFilter struct {
	PatronID   *string
	ISBN       *string
	ActiveOnly bool
	From       *time.Time
	To         *time.Time
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
