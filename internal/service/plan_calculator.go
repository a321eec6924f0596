package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/qpay/quote_pay_server/config"
)

var (
	ErrInvalidTotal           = errors.New("金额必须大于零")
	ErrInstallmentsOutOfRange = errors.New("分期期数超出允许范围")
	ErrInstallmentTooSmall    = errors.New("单期金额低于最低限制")
)

// PlanCalculation 分期拆分结果
// 不变式：FirstPayment + RecurringAmount*(Installments-1) == Total（精确到分）
type PlanCalculation struct {
	Total            float64
	Installments     int
	FirstPayment     float64
	RecurringAmount  float64
	TotalOccurrences int // 首期之外由网关调度的扣款次数，= Installments-1
}

// PlanCalculator 分期计算器，纯函数无 I/O
type PlanCalculator struct {
	cfg *config.PlanConfig
}

func NewPlanCalculator(cfg *config.Config) *PlanCalculator {
	return &PlanCalculator{cfg: &cfg.Plan}
}

// Split 把总额拆成首期 + N-1 期等额循环扣款
// 取整产生的余数全部并入首期，保证无论舍入方向如何总额精确相等
func (c *PlanCalculator) Split(total float64, installments int) (*PlanCalculation, error) {
	totalDec := decimal.NewFromFloat(total).Round(2)
	if totalDec.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidTotal
	}

	maxInstallments := c.cfg.MaxInstallments
	if maxInstallments <= 0 {
		maxInstallments = 12
	}
	if installments < 2 || installments > maxInstallments {
		return nil, ErrInstallmentsOutOfRange
	}

	n := decimal.NewFromInt(int64(installments))

	// 单期最低金额用未取整的商判断，避免经济上无意义的微型分期
	minAmount := decimal.NewFromFloat(c.cfg.MinInstallmentAmount)
	if totalDec.Div(n).Cmp(minAmount) < 0 {
		return nil, ErrInstallmentTooSmall
	}

	recurring := totalDec.Div(n).Round(2)
	first := totalDec.Sub(recurring.Mul(decimal.NewFromInt(int64(installments - 1))))

	firstF, _ := first.Float64()
	recurringF, _ := recurring.Float64()
	totalF, _ := totalDec.Float64()

	return &PlanCalculation{
		Total:            totalF,
		Installments:     installments,
		FirstPayment:     firstF,
		RecurringAmount:  recurringF,
		TotalOccurrences: installments - 1,
	}, nil
}
