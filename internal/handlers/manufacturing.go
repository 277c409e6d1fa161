package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// workOrders 返回工单及生产进度。
func (s *Set) workOrders(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	item := stringParam(params, "production_item")

	orders, err := s.backend.List(ctx, "Work Order", func(record map[string]any) bool {
		if status != "" && fieldString(record, "status", "") != status {
			return false
		}
		if item != "" && fieldString(record, "production_item", "") != item {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个工单", len(orders)),
		Data: map[string]any{
			"work_orders":      orders,
			"total_count":      len(orders),
			"status_breakdown": breakdown(orders, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// bomSummary 返回物料清单汇总。
func (s *Set) bomSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	item := stringParam(params, "item")
	activeOnly := boolParam(params, "is_active")
	defaultOnly := boolParam(params, "is_default")

	boms, err := s.backend.List(ctx, "BOM", func(record map[string]any) bool {
		if item != "" && fieldString(record, "item", "") != item {
			return false
		}
		if activeOnly && !fieldBool(record, "is_active") {
			return false
		}
		if defaultOnly && !fieldBool(record, "is_default") {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var totalCost float64
	for _, bom := range boms {
		totalCost += fieldFloat(bom, "total_cost")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 份物料清单", len(boms)),
		Data: map[string]any{
			"boms":        boms,
			"total_count": len(boms),
			"total_cost":  totalCost,
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
