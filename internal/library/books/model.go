package books

import "time"

// Book は books テーブルの1行を表す
type Book struct {
	BookID          int64
	ISBN            string
	Title           string
	Author          string
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
}
