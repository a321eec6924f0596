package gateway

import (
	"errors"
	"strings"
	"time"
)

// live 环境的提交前校验错误
var (
	ErrInvalidCardNumber = errors.New("card number failed validation")
	ErrCardExpired       = errors.New("card expiration date is in the past")
	ErrInvalidCVV        = errors.New("cvv must be 3 or 4 digits")
)

// ValidateCard live 环境提交前校验
// test 环境不调用本函数，以便使用合成测试卡号
func ValidateCard(number, expiry, cvv string) error {
	if !luhnValid(number) {
		return ErrInvalidCardNumber
	}
	if !expiryValid(expiry, time.Now()) {
		return ErrCardExpired
	}
	if !cvvValid(cvv) {
		return ErrInvalidCVV
	}
	return nil
}

// luhnValid Luhn 校验
func luhnValid(number string) bool {
	number = strings.ReplaceAll(number, " ", "")
	if len(number) < 12 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// expiryValid 有效期格式 YYYY-MM，当月月末前有效
func expiryValid(expiry string, now time.Time) bool {
	t, err := time.Parse("2006-01", expiry)
	if err != nil {
		return false
	}
	// 到期月的最后一刻之前都可用
	endOfMonth := t.AddDate(0, 1, 0)
	return now.Before(endOfMonth)
}

func cvvValid(cvv string) bool {
	if len(cvv) < 3 || len(cvv) > 4 {
		return false
	}
	for _, c := range cvv {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
