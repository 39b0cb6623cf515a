package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Price 按计价货币格式化价格：USD类8位小数，IDR不小于1时取整否则6位，其它2位
func Price(price float64, pair string) string {
	p := strings.ToLower(pair)
	switch {
	case strings.Contains(p, "usdt"), strings.Contains(p, "usdc"), strings.Contains(p, "usd"):
		return Grouped(price, 8)
	case strings.Contains(p, "idr"):
		if price >= 1 {
			return Grouped(price, 0)
		}
		return Grouped(price, 6)
	default:
		return Grouped(price, 2)
	}
}

// Grouped 定点小数并以逗号分隔千位
func Grouped(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)
	return groupThousands(s, ",")
}

// Volume 成交额：Bn / Mn / 千分位
func Volume(v float64) string {
	switch {
	case v >= 1e9:
		return decimal.NewFromFloat(v/1e9).StringFixed(2) + " Bn"
	case v >= 1e6:
		return decimal.NewFromFloat(v/1e6).StringFixed(2) + " Mn"
	default:
		return Grouped(v, 2)
	}
}

// TokenAmount 代币数量：Mn / K / 千分位
func TokenAmount(v float64) string {
	switch {
	case v >= 1e6:
		return decimal.NewFromFloat(v/1e6).StringFixed(2) + " Mn"
	case v >= 1e3:
		return decimal.NewFromFloat(v/1e3).StringFixed(2) + " K"
	default:
		return Grouped(v, 2)
	}
}

// IDRInt 整数部分以点分隔千位，如 1500000 -> 1.500.000
func IDRInt(v float64) string {
	return groupThousands(decimal.NewFromFloat(v).Truncate(0).String(), ".")
}

func groupThousands(s, sep string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
