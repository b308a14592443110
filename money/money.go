// Package money 提供了基于 shopspring/decimal 的高精度美元金额计算与格式化.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money 封装了高精度的金额处理（美元）.
type Money struct {
	value decimal.Decimal
}

// Zero 零金额.
var Zero = Money{value: decimal.Zero}

// New 从 float64 创建 Money.
func New(val float64) Money {
	return Money{value: decimal.NewFromFloat(val)}
}

// NewFromInt 从 int64 创建 Money.
func NewFromInt(val int64) Money {
	return Money{value: decimal.NewFromInt(val)}
}

// NewFromCents 从美分为单位的整数创建 Money.
func NewFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -2)}
}

// NewFromString 从字符串解析金额，允许前导 "$" 与千分位逗号.
func NewFromString(val string) (Money, error) {
	s := strings.TrimSpace(val)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	if neg {
		d = d.Neg()
	}
	return Money{value: d}, nil
}

// Cents 转换为以美分为单位的整数 (四舍五入).
func (m Money) Cents() int64 {
	return m.value.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Round 四舍五入到美分.
func (m Money) Round() Money {
	return Money{value: m.value.Round(2)}
}

// ToFloat 转换为 float64.
func (m Money) ToFloat() float64 {
	f, _ := m.value.Float64()
	return f
}

// String 返回格式化后的字符串 (默认 2 位小数).
func (m Money) String() string {
	return m.value.StringFixed(2)
}

// Dollars 返回带 "$" 前缀的两位小数字符串，负数形如 "$-12.50".
func (m Money) Dollars() string {
	return "$" + m.String()
}

// Add 加法.
func (m Money) Add(other Money) Money {
	return Money{value: m.value.Add(other.value)}
}

// Sub 减法.
func (m Money) Sub(other Money) Money {
	return Money{value: m.value.Sub(other.value)}
}

// Mul 乘法.
func (m Money) Mul(factor float64) Money {
	return Money{value: m.value.Mul(decimal.NewFromFloat(factor))}
}

// MulInt 整数乘法，票价乘以乘客数时不经过浮点.
func (m Money) MulInt(factor int64) Money {
	return Money{value: m.value.Mul(decimal.NewFromInt(factor))}
}

// Cmp 比较大小，返回 -1、0、1.
func (m Money) Cmp(other Money) int {
	return m.value.Cmp(other.value)
}

// Equal 判断金额是否相等（忽略精度表示差异）.
func (m Money) Equal(other Money) bool {
	return m.value.Equal(other.value)
}

// GreaterThan 判断是否严格大于.
func (m Money) GreaterThan(other Money) bool {
	return m.value.GreaterThan(other.value)
}

// IsNegative 判断是否为负.
func (m Money) IsNegative() bool {
	return m.value.IsNegative()
}

// Decimal 返回底层 decimal 值，用于持久化.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

// Sum 汇总多笔金额.
func Sum(items ...Money) Money {
	total := Zero
	for _, item := range items {
		total = total.Add(item)
	}
	return total
}
