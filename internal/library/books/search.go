package books

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// 検索種別。未知の値は all にフォールバック
const (
	SearchTitle  = "title"
	SearchAuthor = "author"
	SearchISBN   = "isbn"
	SearchAll    = "all"
)

var folder = cases.Fold()

// 蔵書検索。title/author は大文字小文字を無視した部分一致、
// isbn はハイフン・空白を除去した完全一致（all のときは部分一致）。
// 結果は (title, author) の照合順でソートされる。
func (s *Service) SearchBooks(ctx context.Context, term, searchType string) ([]BookResponse, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []BookResponse{}, nil
	}

	stype := strings.ToLower(searchType)
	switch stype {
	case SearchTitle, SearchAuthor, SearchISBN:
	default:
		stype = SearchAll
	}

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	termFold := folder.String(term)
	termISBN := normalizeISBN(term)

	matched := make([]Book, 0, len(all))
	for _, b := range all {
		if matchBook(&b, stype, termFold, termISBN) {
			matched = append(matched, b)
		}
	}

	sortByTitleAuthor(matched)

	out := make([]BookResponse, 0, len(matched))
	for i := range matched {
		out = append(out, toDTO(&matched[i]))
	}
	return out, nil
}

func matchBook(b *Book, stype, termFold, termISBN string) bool {
	switch stype {
	case SearchTitle:
		return strings.Contains(folder.String(b.Title), termFold)
	case SearchAuthor:
		return strings.Contains(folder.String(b.Author), termFold)
	case SearchISBN:
		return termISBN != "" && normalizeISBN(b.ISBN) == termISBN
	default: // all
		if strings.Contains(folder.String(b.Title), termFold) {
			return true
		}
		if strings.Contains(folder.String(b.Author), termFold) {
			return true
		}
		return termISBN != "" && strings.Contains(normalizeISBN(b.ISBN), termISBN)
	}
}

// ハイフンと空白を無視して比較する
func normalizeISBN(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)
}

func sortByTitleAuthor(items []Book) {
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		if c := col.CompareString(items[i].Title, items[j].Title); c != 0 {
			return c < 0
		}
		return col.CompareString(items[i].Author, items[j].Author) < 0
	})
}
