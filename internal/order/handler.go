package order

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// saveOrderItemFields are the only item fields a plain save may touch on
// an existing line; delivery and production state is managed elsewhere.
var saveOrderItemFields = []string{"x", "kg", "quantity", "adjustment"}

func findOrderByField(orders []models.Order, field, value string) int {
	for i, o := range orders {
		if models.Str(o[field]) == value {
			return i
		}
	}
	return -1
}

func sendRawJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// GET /api/orders
// Serves three shapes: ?nextOrderNo=true generates the next order number
// for a page, ?orderId= returns one order, otherwise the full list.
func ListOrdersHandler(st *store.Store[[]models.Order]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("nextOrderNo") == "true" {
			return nextOrderNo(c, st)
		}

		if orderID := c.Query("orderId"); orderID != "" {
			var body []byte
			var found bool
			st.View(func(orders []models.Order) {
				if idx := findOrderByField(orders, "orderId", orderID); idx != -1 {
					body, _ = json.Marshal(orders[idx])
					found = true
				}
			})
			if !found {
				return fiber.NewError(fiber.StatusNotFound, "주문을 찾을 수 없습니다.")
			}
			return sendRawJSON(c, body)
		}

		body, err := st.JSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to process orders request")
		}
		return sendRawJSON(c, body)
	}
}

// nextOrderNo scans the current year's numbers for the page's mode and
// returns max+1, zero padded. SMC pages get a "(C)" suffix.
func nextOrderNo(c *fiber.Ctx, st *store.Store[[]models.Order]) error {
	mode := c.Query("mode", "EK")
	pageType := c.Query("pageType")
	if pageType == "" {
		pageType = c.Query("page")
	}
	switch pageType {
	case "NT":
		mode = "EK"
	case "SMB", "SMC":
		mode = "SM"
	}

	year := time.Now().Year()
	prefix := fmt.Sprintf("%s-%d-", mode, year)

	maxNo := 0
	st.View(func(orders []models.Order) {
		for _, o := range orders {
			orderNo := o.OrderNo()
			if !strings.HasPrefix(orderNo, prefix) {
				continue
			}
			clean := strings.TrimSuffix(orderNo, "(C)")
			n, err := strconv.Atoi(clean[len(prefix):])
			if err == nil && n > maxNo {
				maxNo = n
			}
		}
	})

	next := fmt.Sprintf("%s%02d", prefix, maxNo+1)
	if pageType == "SMC" {
		next += "(C)"
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"nextOrderNo": next,
		"currentMax":  maxNo,
	})
}

// POST /api/saveOrder
// Upserts one order by orderId. Existing items are matched by the
// (phd, width, length) triple and only take the screen-editable fields;
// unmatched items are appended as new lines.
func SaveOrderHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data models.Order
		if err := c.BodyParser(&data); err != nil || data == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		updatedItems := 0
		createdItems := 0

		err := st.Update(func(orders *[]models.Order) error {
			idx := -1
			if orderID := data.OrderID(); orderID != "" {
				idx = findOrderByField(*orders, "orderId", orderID)
			}

			if idx == -1 {
				newOrder := models.Order{"mode": "NT"}
				for _, field := range []string{"mode", "orderId", "orderDate", "expectedDate"} {
					if v, ok := data[field]; ok && v != nil {
						newOrder[field] = v
					}
				}
				items := data.Items()
				if items == nil {
					items = []models.Item{}
				}
				newOrder.SetItems(items)
				createdItems = len(items)
				*orders = append(*orders, newOrder)
			} else {
				existing := (*orders)[idx]
				for _, field := range []string{"mode", "orderId", "orderDate", "expectedDate"} {
					if v, ok := data[field]; ok {
						existing[field] = v
					}
				}

				existingItems := existing.Items()
				for _, newItem := range data.Items() {
					if models.Str(newItem["phd"]) == "" || models.Str(newItem["width"]) == "" || models.Str(newItem["length"]) == "" {
						continue
					}
					matched := false
					for _, item := range existingItems {
						if item.MatchesKey(newItem["phd"], newItem["width"], newItem["length"]) {
							item["rowNumber"] = newItem["rowNumber"]
							for _, field := range saveOrderItemFields {
								if v, ok := newItem[field]; ok {
									item[field] = v
								}
							}
							updatedItems++
							matched = true
							break
						}
					}
					if !matched {
						existingItems = append(existingItems, models.Item{
							"rowNumber":  newItem["rowNumber"],
							"phd":        newItem["phd"],
							"width":      newItem["width"],
							"length":     newItem["length"],
							"x":          newItem["x"],
							"kg":         newItem["kg"],
							"quantity":   newItem["quantity"],
							"adjustment": newItem["adjustment"],
						})
						createdItems++
					}
				}
				existing.SetItems(existingItems)
			}

			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "Failed to save order")
		}

		orderID := data.OrderID()
		if orderID == "" {
			orderID = "new"
		}
		action := audit.ActionUpdate
		if createdItems > 0 && updatedItems == 0 {
			action = audit.ActionCreate
		}
		rec.Write(auth.SectionFromCtx(c), "order", action,
			fmt.Sprintf("saveOrder %s (%d updated, %d created)", orderID, updatedItems, createdItems), data)

		return c.JSON(fiber.Map{
			"message":      "Order saved successfully",
			"orderId":      orderID,
			"updatedItems": updatedItems,
			"createdItems": createdItems,
		})
	}
}

// saveFailed keeps handler-raised fiber errors and wraps persistence
// failures as 500s.
func saveFailed(err error, msg string) error {
	if e, ok := err.(*fiber.Error); ok {
		return e
	}
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

// POST /api/updateOrder
// Updates an existing order only. The caller names the order lookup key
// (searchOrderBy), the order fields to touch (updateFields), the item
// lookup method (searchMethod) and the item fields to touch
// (itemUpdateFields). An empty string or null deletes the field.
// Unmatched items are skipped and counted, never created.
func UpdateOrderHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data models.Order
		if err := c.BodyParser(&data); err != nil || data == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		updatedFields := 0
		updatedItems := 0
		skippedItems := 0

		err := st.Update(func(orders *[]models.Order) error {
			idx := locateOrder(*orders, data)
			if idx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "주문을 찾을 수 없습니다.")
			}
			existing := (*orders)[idx]

			for _, field := range stringSlice(data["updateFields"]) {
				if v, ok := data[field]; ok {
					existing[field] = v
					updatedFields++
				}
			}

			itemFields := stringSlice(data["itemUpdateFields"])
			searchMethod := models.Str(data["searchMethod"])
			existingItems := existing.Items()

			for _, newItem := range data.Items() {
				matches := locateItems(existingItems, searchMethod, newItem)
				if len(matches) == 0 {
					skippedItems++
					continue
				}
				for _, item := range matches {
					applyItemFields(item, newItem, itemFields)
				}
				updatedItems += len(matches)
			}

			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "Failed to update order")
		}

		target := models.Str(data["orderId"])
		if target == "" {
			target = models.Str(data["orderNo"])
		}
		if target == "" {
			target = models.Str(data["deliveryNo"])
		}
		if target == "" {
			target = "unknown"
		}
		rec.Write(auth.SectionFromCtx(c), "order", audit.ActionUpdate,
			fmt.Sprintf("updateOrder %s (%d fields, %d items, %d skipped)", target, updatedFields, updatedItems, skippedItems), data)

		return c.JSON(fiber.Map{
			"message":       "Order updated successfully",
			"orderId":       target,
			"updatedFields": updatedFields,
			"updatedItems":  updatedItems,
			"skippedItems":  skippedItems,
		})
	}
}

// locateOrder resolves the target order per searchOrderBy. deliveryNo
// searches at the item level.
func locateOrder(orders []models.Order, data models.Order) int {
	switch models.Str(data["searchOrderBy"]) {
	case "orderId":
		if v := models.Str(data["orderId"]); v != "" {
			return findOrderByField(orders, "orderId", v)
		}
	case "orderNo":
		if v := models.Str(data["orderNo"]); v != "" {
			return findOrderByField(orders, "orderNo", v)
		}
	case "deliveryNo":
		want := models.Str(data["deliveryNo"])
		if want == "" {
			return -1
		}
		for i, o := range orders {
			for _, item := range o.Items() {
				if models.Str(item["deliveryNo"]) == want {
					return i
				}
			}
		}
	}
	return -1
}

// locateItems returns the items addressed by one incoming row. Every
// method yields at most one item except deliveryNo, which addresses all
// lines on that delivery.
func locateItems(items []models.Item, method string, newItem models.Item) []models.Item {
	switch method {
	case "rowNumber":
		if v := models.Str(newItem["rowNumber"]); v != "" {
			for _, item := range items {
				if models.Str(item["rowNumber"]) == v {
					return []models.Item{item}
				}
			}
		}
	case "itemNo":
		if v := models.Str(newItem["itemNo"]); v != "" {
			for _, item := range items {
				if models.Str(item["itemNo"]) == v {
					return []models.Item{item}
				}
			}
		}
	case "phdWidthLength":
		if models.Str(newItem["phd"]) != "" && models.Str(newItem["width"]) != "" && models.Str(newItem["length"]) != "" {
			for _, item := range items {
				if item.MatchesKey(newItem["phd"], newItem["width"], newItem["length"]) {
					return []models.Item{item}
				}
			}
		}
	case "deliveryNo":
		if v := models.Str(newItem["deliveryNo"]); v != "" {
			var matches []models.Item
			for _, item := range items {
				if models.Str(item["deliveryNo"]) == v {
					matches = append(matches, item)
				}
			}
			return matches
		}
	}
	return nil
}

func applyItemFields(item, newItem models.Item, fields []string) {
	for _, field := range fields {
		v, ok := newItem[field]
		if !ok {
			continue
		}
		if v == nil || v == "" {
			delete(item, field)
		} else {
			item[field] = v
		}
	}
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

type splitRequest struct {
	OrderNo        string `json:"orderNo"`
	OriginalItemNo string `json:"originalItemNo"`
}

// POST /api/split
// Clones an item as "<itemNo>.1" carrying the undelivered remainder:
// adjustment becomes the leftover rolls, tfkg/producedkg drop the
// delivered weight, deliveredkg restarts at zero. The clone is inserted
// right after the original.
func SplitItemHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req splitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.OrderNo == "" || req.OriginalItemNo == "" {
			return fiber.NewError(fiber.StatusBadRequest, "필수 필드가 누락되었습니다.")
		}

		newItemNo := req.OriginalItemNo + ".1"

		err := st.Update(func(orders *[]models.Order) error {
			idx := findOrderByField(*orders, "orderNo", req.OrderNo)
			if idx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "주문을 찾을 수 없습니다.")
			}
			o := (*orders)[idx]
			items := o.Items()

			origIdx := -1
			for i, item := range items {
				if models.Str(item["itemNo"]) == req.OriginalItemNo {
					origIdx = i
					break
				}
			}
			if origIdx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "아이템을 찾을 수 없습니다.")
			}
			orig := items[origIdx]

			leftoverR := models.Num(orig["adjustment"]) - models.Num(orig["deliveredR"])
			deliveredKg := models.Num(orig["deliveredkg"])
			newItem := models.Item{
				"rowNumber":            orig["rowNumber"],
				"phd":                  orig["phd"],
				"width":                orig["width"],
				"length":               orig["length"],
				"x":                    orig["x"],
				"kg":                   orig["kg"],
				"quantity":             orig["quantity"],
				"adjustment":           strconv.FormatFloat(leftoverR, 'f', -1, 64),
				"unitPrice":            orig["unitPrice"],
				"itemNo":               newItemNo,
				"w":                    orig["w"],
				"tfkg":                 strconv.FormatFloat(models.Num(orig["tfkg"])-deliveredKg, 'f', 3, 64),
				"producedkg":           strconv.FormatFloat(models.Num(orig["producedkg"])-deliveredKg, 'f', 3, 64),
				"deliveredkg":          "0.0",
				"isProductionComplete": false,
			}

			items = append(items[:origIdx+1], append([]models.Item{newItem}, items[origIdx+1:]...)...)
			o.SetItems(items)

			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "아이템 분할 중 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "order", audit.ActionCreate,
			fmt.Sprintf("split %s/%s -> %s", req.OrderNo, req.OriginalItemNo, newItemNo), req)

		return c.JSON(fiber.Map{
			"success":        true,
			"message":        "새 아이템이 성공적으로 생성되었습니다.",
			"newItemCreated": true,
			"originalItemNo": req.OriginalItemNo,
			"newItemNo":      newItemNo,
		})
	}
}

type syncRowNumbersRequest struct {
	OrderID string        `json:"orderId"`
	RowData []models.Item `json:"rowData"`
}

// POST /api/syncRowNumbers
// Rewrites rowNumbers in bulk after the client reorders rows on screen.
func SyncRowNumbersHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req syncRowNumbersRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.OrderID == "" || req.RowData == nil {
			return fiber.NewError(fiber.StatusBadRequest, "필수 필드가 누락되었습니다.")
		}

		err := st.Update(func(orders *[]models.Order) error {
			idx := findOrderByField(*orders, "orderId", req.OrderID)
			if idx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "주문을 찾을 수 없습니다.")
			}
			items := (*orders)[idx].Items()
			for _, row := range req.RowData {
				for _, item := range items {
					if item.MatchesKey(row["phd"], row["width"], row["length"]) {
						item["rowNumber"] = row["newRowNumber"]
						break
					}
				}
			}
			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "서버 오류")
		}

		rec.Write(auth.SectionFromCtx(c), "order", audit.ActionUpdate,
			fmt.Sprintf("syncRowNumbers %s (%d rows)", req.OrderID, len(req.RowData)), req)

		return c.JSON(fiber.Map{
			"success": true,
			"message": "rowNumber 동기화가 완료되었습니다.",
		})
	}
}

type deleteItemRequest struct {
	OrderID    string `json:"orderId"`
	Phd        any    `json:"phd"`
	Width      any    `json:"width"`
	Length     any    `json:"length"`
	Adjustment any    `json:"adjustment"`
}

// DELETE /api/deleteItem
// Removes every item matching (phd, width, length, adjustment),
// string-normalized so numeric and string payloads compare equal.
func DeleteItemHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteItemRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		err := st.Update(func(orders *[]models.Order) error {
			idx := findOrderByField(*orders, "orderId", req.OrderID)
			if idx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "주문을 찾을 수 없습니다.")
			}
			o := (*orders)[idx]
			items := o.Items()

			kept := items[:0]
			for _, item := range items {
				if item.MatchesKey(req.Phd, req.Width, req.Length) &&
					models.Str(item["adjustment"]) == models.Str(req.Adjustment) {
					continue
				}
				kept = append(kept, item)
			}
			if len(kept) == len(items) {
				return fiber.NewError(fiber.StatusNotFound, "삭제할 아이템을 찾을 수 없습니다.")
			}
			o.SetItems(kept)

			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "서버 오류")
		}

		rec.Write(auth.SectionFromCtx(c), "order", audit.ActionDelete,
			fmt.Sprintf("deleteItem %s phd=%s", req.OrderID, models.Str(req.Phd)), req)

		return c.JSON(fiber.Map{"success": true, "message": "아이템이 삭제되었습니다."})
	}
}

// DELETE /api/orders?orderNo=|orderId=
// Either key matches either field on the record, old clients mix them up.
func DeleteOrderHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		searchValue := c.Query("orderNo")
		if searchValue == "" {
			searchValue = c.Query("orderId")
		}
		if searchValue == "" {
			return fiber.NewError(fiber.StatusBadRequest, "orderNo 또는 orderId 파라미터가 필요합니다.")
		}

		var deleted models.Order
		err := st.Update(func(orders *[]models.Order) error {
			idx := -1
			for i, o := range *orders {
				if o.OrderNo() == searchValue || o.OrderID() == searchValue {
					idx = i
					break
				}
			}
			if idx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "주문을 찾을 수 없습니다.")
			}
			deleted = (*orders)[idx]
			*orders = append((*orders)[:idx], (*orders)[idx+1:]...)

			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "주문 삭제에 실패했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "order", audit.ActionDelete,
			"deleteOrder "+searchValue, deleted)

		return c.JSON(fiber.Map{
			"success":      true,
			"message":      fmt.Sprintf("주문 \"%s\"이 성공적으로 삭제되었습니다.", searchValue),
			"deletedOrder": deleted,
		})
	}
}

type clearDeliveryRequest struct {
	DeliveryNo string `json:"deliveryNo"`
	OrderNo    string `json:"orderNo"`
	ItemNo     string `json:"itemNo"`
}

// POST /api/deletedeliveryNo
// Strips delivery and production state from items, keeping only the base
// field set. Addressed either by deliveryNo (all matching items across
// all orders) or by one (orderNo, itemNo) pair.
func ClearDeliveryHandler(st *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req clearDeliveryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.DeliveryNo == "" && (req.OrderNo == "" || req.ItemNo == "") {
			return fiber.NewError(fiber.StatusBadRequest, "deliveryNo 또는 (orderNo + itemNo)가 필요합니다.")
		}

		updatedCount := 0
		processedItems := []fiber.Map{}

		err := st.Update(func(orders *[]models.Order) error {
			if req.DeliveryNo != "" {
				for _, o := range *orders {
					for _, item := range o.Items() {
						if models.Str(item["deliveryNo"]) != req.DeliveryNo {
							continue
						}
						stripItem(item)
						updatedCount++
						processedItems = append(processedItems, fiber.Map{
							"orderNo": o.OrderNo(),
							"itemNo":  item["itemNo"],
						})
					}
				}
				if updatedCount == 0 {
					return fiber.NewError(fiber.StatusNotFound,
						fmt.Sprintf("deliveryNo '%s'를 찾을 수 없습니다.", req.DeliveryNo))
				}
			} else {
				idx := findOrderByField(*orders, "orderNo", req.OrderNo)
				if idx == -1 {
					return fiber.NewError(fiber.StatusNotFound,
						fmt.Sprintf("주문번호 '%s'을 찾을 수 없습니다.", req.OrderNo))
				}
				var target models.Item
				for _, item := range (*orders)[idx].Items() {
					if models.Str(item["itemNo"]) == req.ItemNo {
						target = item
						break
					}
				}
				if target == nil {
					return fiber.NewError(fiber.StatusNotFound,
						fmt.Sprintf("아이템 '%s'을 찾을 수 없습니다.", req.ItemNo))
				}
				stripItem(target)
				updatedCount = 1
				processedItems = append(processedItems, fiber.Map{
					"orderNo": req.OrderNo,
					"itemNo":  req.ItemNo,
				})
			}

			models.SortOrders(*orders)
			return nil
		})
		if err != nil {
			return saveFailed(err, "정보 삭제 중 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "order", audit.ActionUpdate,
			fmt.Sprintf("clearDelivery (%d items)", updatedCount), req)

		return c.JSON(fiber.Map{
			"success":        true,
			"message":        "배송 정보가 성공적으로 삭제되었습니다.",
			"updatedCount":   updatedCount,
			"processedItems": processedItems,
			"deliveryNo":     nilIfEmpty(req.DeliveryNo),
			"orderNo":        nilIfEmpty(req.OrderNo),
			"itemNo":         nilIfEmpty(req.ItemNo),
		})
	}
}

func stripItem(item models.Item) {
	for key := range item {
		keep := false
		for _, f := range models.PreservedItemFields {
			if key == f {
				keep = true
				break
			}
		}
		if !keep {
			delete(item, key)
		}
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
