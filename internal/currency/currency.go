// Package currency содержит утилиту пересчёта цен в валюту локали.
package currency

import (
	"fmt"
	"strings"
)

// Info содержит код валюты и статический курс к доллару США.
type Info struct {
	Code string
	Rate float64
}

var usd = Info{Code: "USD", Rate: 1.0}

// Курсы статические: сервис показывает ориентировочные цены,
// биллинг выполняется внешним платёжным провайдером.
var byRegion = map[string]Info{
	"IN": {Code: "INR", Rate: 83.0},
	"BR": {Code: "BRL", Rate: 5.0},
	"ID": {Code: "IDR", Rate: 15500.0},
	"RU": {Code: "RUB", Rate: 90.0},
	"GB": {Code: "GBP", Rate: 0.79},
	"DE": {Code: "EUR", Rate: 0.92},
	"FR": {Code: "EUR", Rate: 0.92},
	"ES": {Code: "EUR", Rate: 0.92},
	"JP": {Code: "JPY", Rate: 150.0},
	"US": usd,
}

// ForLocale возвращает валюту для локали вида "en-US" или "pt_BR".
// Неизвестная локаль даёт доллар США.
func ForLocale(locale string) Info {
	locale = strings.ReplaceAll(locale, "_", "-")
	parts := strings.Split(locale, "-")
	if len(parts) < 2 {
		return usd
	}

	region := strings.ToUpper(parts[len(parts)-1])
	if info, ok := byRegion[region]; ok {
		return info
	}
	return usd
}

// Format возвращает цену в валюте локали в виде строки, например "INR 82.17".
func Format(amountUSD float64, locale string) string {
	info := ForLocale(locale)
	return fmt.Sprintf("%s %.2f", info.Code, amountUSD*info.Rate)
}
