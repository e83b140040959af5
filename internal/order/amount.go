package order

// MinOnlineAmount is the smallest total accepted for card payment.
const MinOnlineAmount int64 = 50

const taxPercent = 2

// ComputeAmount adds the flat tax to the subtotal, floored.
func ComputeAmount(subtotal int64) int64 {
	return subtotal + subtotal*taxPercent/100
}

// ChargeUnitPrice is the per-unit price sent to the gateway, tax included.
func ChargeUnitPrice(offerPrice int64) int64 {
	return offerPrice + offerPrice*taxPercent/100
}
