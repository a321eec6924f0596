package gateway

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLuhnValid(t *testing.T) {
	valid := []string{
		"4111111111111111",
		"5555555555554444",
		"378282246310005",
		"4111 1111 1111 1111", // 空格可接受
	}
	for _, number := range valid {
		assert.True(t, luhnValid(number), "expected %q to pass", number)
	}

	invalid := []string{
		"4111111111111112",     // 校验位错误
		"1234",                 // 太短
		"41111111111111111111", // 太长
		"4111-1111-1111-1111",  // 非法字符
		"",
	}
	for _, number := range invalid {
		assert.False(t, luhnValid(number), "expected %q to fail", number)
	}
}

func TestExpiryValid(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	// 到期月当月仍有效
	assert.True(t, expiryValid("2026-08", now))
	assert.True(t, expiryValid("2026-09", now))
	assert.True(t, expiryValid("2030-01", now))

	assert.False(t, expiryValid("2026-07", now))
	assert.False(t, expiryValid("2020-12", now))
	assert.False(t, expiryValid("12/26", now)) // 格式错误
	assert.False(t, expiryValid("", now))
}

func TestCVVValid(t *testing.T) {
	assert.True(t, cvvValid("123"))
	assert.True(t, cvvValid("1234"))

	assert.False(t, cvvValid("12"))
	assert.False(t, cvvValid("12345"))
	assert.False(t, cvvValid("12a"))
	assert.False(t, cvvValid(""))
}

func TestValidateCard(t *testing.T) {
	futureExpiry := fmt.Sprintf("%d-12", time.Now().Year()+2)

	assert.NoError(t, ValidateCard("4111111111111111", futureExpiry, "123"))
	assert.ErrorIs(t, ValidateCard("4111111111111112", futureExpiry, "123"), ErrInvalidCardNumber)
	assert.ErrorIs(t, ValidateCard("4111111111111111", "2020-01", "123"), ErrCardExpired)
	assert.ErrorIs(t, ValidateCard("4111111111111111", futureExpiry, "12"), ErrInvalidCVV)
}
