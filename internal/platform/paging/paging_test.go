package paging

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	r := Paginate(items, Page{Number: 3, Size: 5})
	if len(r.Items) != 2 || r.Items[0] != 11 {
		t.Fatalf("unexpected page 3: %+v", r.Items)
	}
	if r.Total != 12 || r.TotalPages != 3 {
		t.Fatalf("unexpected totals: total=%d pages=%d", r.Total, r.TotalPages)
	}

	past := Paginate(items, Page{Number: 9, Size: 5})
	if len(past.Items) != 0 {
		t.Fatalf("expected empty page past the end, got %v", past.Items)
	}

	huge := Paginate([]int{1, 2, 3}, Page{Number: math.MaxInt, Size: maxPageSize})
	if len(huge.Items) != 0 || huge.Total != 3 {
		t.Fatalf("expected empty page for a huge page number, got %+v", huge)
	}

	empty := Paginate([]int(nil), Page{Number: 1, Size: 5})
	if empty.TotalPages != 0 || len(empty.Items) != 0 {
		t.Fatalf("unexpected empty result: %+v", empty)
	}
}

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/books?page=2&page_size=abc", nil)

	p := FromQuery(c, 15)
	if p.Number != 2 || p.Size != 15 {
		t.Fatalf("unexpected page: %+v", p)
	}

	// gin はクエリをキャッシュするのでコンテキストを作り直す
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/books?page=-1&page_size=1000", nil)
	p = FromQuery(c, 15)
	if p.Number != 1 || p.Size != maxPageSize {
		t.Fatalf("unexpected clamped page: %+v", p)
	}
}

func TestFromQueryHugePage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/books?page=9223372036854775807", nil)

	r := Paginate([]string{"a", "b"}, FromQuery(c, 5))
	if len(r.Items) != 0 {
		t.Fatalf("unexpected items: %v", r.Items)
	}
}
