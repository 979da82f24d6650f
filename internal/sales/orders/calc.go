package orders

// lineTotals prices one order line. Discount applies to the gross amount,
// tax to the discounted net.
func lineTotals(quantity int64, unitPrice, discountPercent, taxPercent float64) (netAmount, taxAmount, lineTotal float64) {
	grossAmount := float64(quantity) * unitPrice
	discountAmount := grossAmount * (discountPercent / 100)
	netAmount = grossAmount - discountAmount
	taxAmount = netAmount * (taxPercent / 100)
	lineTotal = netAmount + taxAmount
	return
}
