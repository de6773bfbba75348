package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query  string
		page   int
		limit  int
		offset int
	}{
		{"", 1, DefaultLimit, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=0", 1, DefaultLimit, 0},
		{"?page=-2&limit=500", 1, MaxLimit, 0},
		{"?page=two&limit=many", 1, DefaultLimit, 0},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/items"+tt.query, nil)
		p := Parse(c)
		if p.Page != tt.page || p.Limit != tt.limit || p.Offset() != tt.offset {
			t.Errorf("Parse(%q) = %+v offset %d, want %d/%d offset %d", tt.query, p, p.Offset(), tt.page, tt.limit, tt.offset)
		}
	}
}
