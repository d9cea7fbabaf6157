package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name             string
		total            int64
		page, limit      int
		pages            int
		hasNext, hasPrev bool
	}{
		{"empty", 0, 1, 10, 0, false, false},
		{"exact fit", 20, 1, 10, 2, true, false},
		{"partial last page", 21, 3, 10, 3, false, true},
		{"middle page", 50, 2, 10, 5, true, true},
		{"single item", 1, 1, 1, 1, false, false},
		{"page past end", 5, 4, 2, 3, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeta(tt.total, tt.page, tt.limit)
			assert.Equal(t, tt.pages, m.Pages)
			assert.Equal(t, tt.hasNext, m.HasNext)
			assert.Equal(t, tt.hasPrev, m.HasPrev)
			assert.Equal(t, tt.total, m.Total)
		})
	}
}

func TestParseClampsValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/authors?page=-3&limit=500", nil)

	p := Parse(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestParseDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/genres", nil)

	p := Parse(c)
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, p)
}
