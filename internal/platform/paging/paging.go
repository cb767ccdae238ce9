package paging

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 200

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

type Result[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// FromQuery reads ?page= and ?page_size=, falling back to defaultSize.
func FromQuery(c *gin.Context, defaultSize int) Page {
	return Page{
		Number: atoiDef(c.Query("page"), 1),
		Size:   atoiDef(c.Query("page_size"), defaultSize),
	}.normalize(defaultSize)
}

func (p Page) normalize(defaultSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Paginate slices items for the requested page. A page past the end is empty.
func Paginate[T any](items []T, p Page) Result[T] {
	p = p.normalize(10)
	total := len(items)
	// 掛け算の前に範囲外を弾く（巨大な page でも溢れない）
	start := total
	if p.Number-1 <= total/p.Size {
		start = min((p.Number-1)*p.Size, total)
	}
	end := start + p.Size
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Result[T]{
		Items:      out,
		Total:      total,
		Page:       p.Number,
		PageSize:   p.Size,
		TotalPages: (total + p.Size - 1) / p.Size,
	}
}

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
