package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatEntryOrg renders an Entry as an Org-mode block. Structured facts
// go in a PROPERTIES drawer so they stay searchable.
func FormatEntryOrg(e Entry) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", e.Symbol, strings.ToUpper(string(e.Side)), shortID(e.OrderID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ORDER_ID: %s\n", e.OrderID))
	b.WriteString(fmt.Sprintf(":TICKER: %s\n", e.Symbol))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", e.Side))
	b.WriteString(fmt.Sprintf(":QUANTITY: %d\n", e.Qty))
	b.WriteString(fmt.Sprintf(":STRIKE: %s\n", e.Strike.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":EXPIRATION: %s\n", e.Expiration))
	b.WriteString(fmt.Sprintf(":STRADDLE_COST: %s\n", e.Cost.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":FILL_PRICE: %s\n", e.FillPrice.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":NOTIONAL: %s\n", e.Notional().StringFixed(2)))
	b.WriteString(fmt.Sprintf(":TIMESTAMP: %s\n", e.Time.UTC().Format(time.RFC3339)))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatEntriesOrg renders multiple entries separated by blank lines.
func FormatEntriesOrg(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatEntryOrg(e))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
