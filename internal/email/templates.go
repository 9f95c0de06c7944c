package email

import (
	"fmt"
	"strings"

	"github.com/example/shop-order-backend/internal/domain/order"
)

func BuildOrderConfirmationBody(trackingNumber string, total int64, items []order.Item) string {
	var rows strings.Builder
	for _, item := range items {
		name := item.Name
		if item.VariantName != "" {
			name += " (" + item.VariantName + ")"
		}
		rows.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td align=\"right\">%d</td><td align=\"right\">%d</td></tr>",
			name, item.Quantity, item.Price*int64(item.Quantity)))
	}

	return fmt.Sprintf(`<html><body>
<p>Thank you for your order <strong>%s</strong>.</p>
<table border="0" cellpadding="4">
<tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Amount</th></tr>
%s
<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>%d</strong></td></tr>
</table>
<p>We will let you know when your order ships.</p>
</body></html>`, trackingNumber, rows.String(), total)
}

func BuildPaymentReceivedBody(trackingNumber string, total int64, transactionNo string) string {
	return fmt.Sprintf(`<html><body>
<p>We have received your payment of <strong>%d</strong> for order <strong>%s</strong>.</p>
<p>Gateway transaction: %s</p>
</body></html>`, total, trackingNumber, transactionNo)
}

func BuildOrderCancelledBody(trackingNumber, reason string) string {
	return fmt.Sprintf(`<html><body>
<p>Your order <strong>%s</strong> has been cancelled.</p>
<p>Reason: %s</p>
<p>If you already paid, the refund will be processed shortly.</p>
</body></html>`, trackingNumber, reason)
}

func BuildOrderDeliveredBody(trackingNumber string) string {
	return fmt.Sprintf(`<html><body>
<p>Your order <strong>%s</strong> has been delivered. Enjoy!</p>
</body></html>`, trackingNumber)
}
