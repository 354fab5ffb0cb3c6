package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/invoices?"+query, nil)
	return c
}

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Skip: 0, Take: 50}},
		{"skip=20&take=10", Params{Skip: 20, Take: 10}},
		{"skip=-5&take=0", Params{Skip: 0, Take: 50}},
		{"take=500", Params{Skip: 0, Take: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Parse(contextWithQuery(tt.query))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_NonNumeric(t *testing.T) {
	_, err := Parse(contextWithQuery("take=ten"))
	assert.EqualError(t, err, "take must be an integer")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), d)

	ts, err := ParseDate("2026-03-14T09:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), ts)

	_, err = ParseDate("14/03/2026")
	assert.Error(t, err)
}
