package models

import "sort"

// Order is an open JSON record. Known fields: mode, orderId, orderNo,
// orderDate, expectedDate, items. Everything else passes through untouched.
type Order map[string]any

// Item is one order line. Identity for reconciliation is the
// (phd, width, length) triple; rowNumber drives display order.
type Item map[string]any

// PreservedItemFields is the base set kept when a delivery assignment is
// cleared from an item. Every other field is delivery or production state.
var PreservedItemFields = []string{
	"rowNumber", "phd", "width", "length", "x", "kg", "quantity",
	"adjustment", "unitPrice", "itemNo", "w", "tfkg", "producedkg",
	"deliveredkg", "isProductionComplete",
}

func (o Order) Mode() string    { return Str(o["mode"]) }
func (o Order) OrderID() string { return Str(o["orderId"]) }
func (o Order) OrderNo() string { return Str(o["orderNo"]) }

// Items returns the order's item list, converting freshly unmarshalled
// []any payloads into []Item in place.
func (o Order) Items() []Item {
	switch v := o["items"].(type) {
	case []Item:
		return v
	case []any:
		items := make([]Item, 0, len(v))
		for _, raw := range v {
			if m, ok := raw.(map[string]any); ok {
				items = append(items, Item(m))
			}
		}
		o["items"] = items
		return items
	default:
		return nil
	}
}

func (o Order) SetItems(items []Item) { o["items"] = items }

// MatchesKey reports whether the item carries the given
// (phd, width, length) triple, compared string-normalized.
func (it Item) MatchesKey(phd, width, length any) bool {
	return Str(it["phd"]) == Str(phd) &&
		Str(it["width"]) == Str(width) &&
		Str(it["length"]) == Str(length)
}

func modePriority(mode string) int {
	switch mode {
	case "NT":
		return 1
	case "SM-B", "SM-C":
		return 2
	default:
		return 0
	}
}

// SortOrders applies the canonical ordering: mode priority first, then
// orderDate ascending; items within each order by numeric rowNumber.
// The sort is a full, idempotent pass.
func SortOrders(orders []Order) {
	for _, o := range orders {
		items := o.Items()
		if len(items) > 1 {
			sort.SliceStable(items, func(i, j int) bool {
				return IntOr(items[i]["rowNumber"], 0) < IntOr(items[j]["rowNumber"], 0)
			})
			o.SetItems(items)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		pi := modePriority(orders[i].Mode())
		pj := modePriority(orders[j].Mode())
		if pi != pj {
			return pi < pj
		}
		return DottedDateKey(Str(orders[i]["orderDate"])) < DottedDateKey(Str(orders[j]["orderDate"]))
	})
}
