package insight

import "strings"

// newCurrencyReplacer builds a replacer that rewrites stray foreign
// currency markers to the canonical symbol and unit. The generator is not
// guaranteed to honor locale instructions, so every title, description,
// and action text passes through this. "US$" must be listed before "USD"
// and "$" so longer markers win.
func newCurrencyReplacer(symbol, code, word string) *strings.Replacer {
	return strings.NewReplacer(
		"US$", symbol,
		"USD", code,
		"usd", code,
		"$", symbol,
		"dollars", word,
		"Dollars", word,
	)
}

func sanitizeText(r *strings.Replacer, text string) string {
	return r.Replace(text)
}
