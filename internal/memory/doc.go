// Package memory provides the object pool the order book uses to avoid
// per-order heap churn: a typed Pool for recycling *Order records as
// they're freed by the matching goroutine and drawn again for the next
// incoming order.
package memory
