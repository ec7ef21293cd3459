package receipt

import "fmt"

// Validate checks a Receipt for the fields the print layouts depend on.
// It deliberately does not check total == subtotal - discount: arithmetic is
// the producer's responsibility and the encoder prints whatever it is given.
func Validate(r *Receipt) error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}

	if len(r.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}

	for i, it := range r.Items {
		if it.Name == "" {
			return fmt.Errorf("item[%d]: name is required", i)
		}
		if it.Qty <= 0 {
			return fmt.Errorf("item[%d] '%s': qty must be positive", i, it.Name)
		}
		if it.RetailPrice < 0 || it.BulkPrice < 0 {
			return fmt.Errorf("item[%d] '%s': prices must not be negative", i, it.Name)
		}
		if it.Discount < 0 {
			return fmt.Errorf("item[%d] '%s': discount must not be negative", i, it.Name)
		}
		if it.Tier != "" && it.Tier != TierRetail && it.Tier != TierBulk {
			return fmt.Errorf("item[%d] '%s': invalid tier '%s' (must be %s or %s)",
				i, it.Name, it.Tier, TierRetail, TierBulk)
		}
	}

	if r.Subtotal < 0 || r.Total < 0 {
		return fmt.Errorf("subtotal and total must not be negative")
	}
	if r.Discount < 0 {
		return fmt.Errorf("discount must not be negative")
	}

	if r.PaymentMethod == "" {
		return fmt.Errorf("payment_method is required")
	}

	if r.CashReceived < 0 || r.Change < 0 {
		return fmt.Errorf("cash_received and change must not be negative")
	}

	return nil
}
