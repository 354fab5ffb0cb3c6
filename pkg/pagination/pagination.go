package pagination

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultSkip = 0
	DefaultTake = 50
	MaxTake     = 100
	MinTake     = 1
)

// Params holds validated skip/take parameters
type Params struct {
	Skip int
	Take int
}

// Parse extracts skip/take from query parameters. Non-numeric values are an
// error; out-of-range values are clamped.
func Parse(c *gin.Context) (Params, error) {
	skip, err := queryInt(c, "skip", DefaultSkip)
	if err != nil {
		return Params{}, err
	}
	take, err := queryInt(c, "take", DefaultTake)
	if err != nil {
		return Params{}, err
	}

	if skip < 0 {
		skip = DefaultSkip
	}
	if take < MinTake {
		take = DefaultTake
	}
	if take > MaxTake {
		take = MaxTake
	}

	return Params{Skip: skip, Take: take}, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// ParseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
