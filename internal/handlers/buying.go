package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// purchaseOrders 返回采购订单列表。
func (s *Set) purchaseOrders(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	supplier := stringParam(params, "supplier")

	orders, err := s.backend.List(ctx, "Purchase Order", func(record map[string]any) bool {
		if status != "" && fieldString(record, "status", "") != status {
			return false
		}
		if supplier != "" && fieldString(record, "supplier", "") != supplier {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var totalAmount float64
	for _, order := range orders {
		totalAmount += fieldFloat(order, "grand_total")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个采购订单", len(orders)),
		Data: map[string]any{
			"orders":           orders,
			"total_count":      len(orders),
			"total_amount":     totalAmount,
			"status_breakdown": breakdown(orders, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// createPurchaseOrderDraft 创建采购订单草稿。
func (s *Set) createPurchaseOrderDraft(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	supplier := stringParam(params, "supplier")
	if supplier == "" {
		return missingParam("缺少必填参数 supplier"), nil
	}

	draft := map[string]any{
		"supplier":    supplier,
		"status":      "Draft",
		"order_owner": user.Name,
	}
	if item := stringParam(params, "item"); item != "" {
		draft["item"] = item
	}
	if qty, ok := floatParam(params, "qty"); ok {
		draft["qty"] = qty
	}

	name, err := s.backend.Insert(ctx, "Purchase Order", draft)
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "采购订单草稿已创建，请审核后提交。",
		Data: map[string]any{
			"record_type": "Purchase Order",
			"record":      name,
			"doc":         draft,
		},
		Type:     action.TypeDraft,
		Category: action.CategoryDraft,
	}, nil
}
