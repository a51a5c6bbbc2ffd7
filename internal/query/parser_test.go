package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBareStatus(t *testing.T) {
	for _, name := range []string{"closed", "completed", "done", "skipped", "cancelled"} {
		e, err := Parse(name)
		require.NoError(t, err, name)
		assert.True(t, e.Bare)
	}
}

func TestParseBareStatusCaseInsensitive(t *testing.T) {
	e, err := Parse("DONE")
	require.NoError(t, err)
	assert.True(t, e.Bare)
	assert.Equal(t, FieldCompleted, e.Field)
}

func TestParseFieldOpDuration(t *testing.T) {
	e, err := Parse("age > 30d")
	require.NoError(t, err)
	assert.False(t, e.Bare)
	assert.Equal(t, FieldAge, e.Field)
	assert.Equal(t, OpGT, e.Op)
	assert.Equal(t, 30*24*time.Hour, e.Duration)
}

func TestParseWordOperators(t *testing.T) {
	e, err := Parse("activity gte 1w")
	require.NoError(t, err)
	assert.Equal(t, FieldActivity, e.Field)
	assert.Equal(t, OpGTE, e.Op)
}

func TestParseNow(t *testing.T) {
	e, err := Parse("closed < now")
	require.NoError(t, err)
	assert.True(t, e.IsNow)
}

func TestParseDateLiteral(t *testing.T) {
	e, err := Parse("created >= 2024-01-15")
	require.NoError(t, err)
	require.True(t, e.HasDate)
	assert.Equal(t, 2024, e.Date.Year())
	assert.Equal(t, time.January, e.Date.Month())
	assert.Equal(t, 15, e.Date.Day())
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse("bogus > 1d")
	assert.Error(t, err)
}

func TestParseUnknownOperator(t *testing.T) {
	_, err := Parse("age ~~ 1d")
	assert.Error(t, err)
}

func TestParseEmptyExpression(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)
}

func TestParseSingleUnknownWordIsError(t *testing.T) {
	_, err := Parse("bogus")
	assert.Error(t, err)
}

func TestParseTrailingGarbageRejected(t *testing.T) {
	_, err := Parse("age > 1d extra")
	assert.Error(t, err)
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := Parse("age > 1x")
	assert.Error(t, err)
}

func TestThresholdNow(t *testing.T) {
	now := time.Now()
	e := &Expr{IsNow: true}
	assert.True(t, e.Threshold(now).Equal(now))
}

func TestThresholdDuration(t *testing.T) {
	now := time.Now()
	e := &Expr{Duration: time.Hour}
	assert.True(t, e.Threshold(now).Equal(now.Add(-time.Hour)))
}

func TestThresholdDate(t *testing.T) {
	now := time.Now()
	d := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)
	e := &Expr{HasDate: true, Date: d}
	assert.True(t, e.Threshold(now).Equal(d))
}
