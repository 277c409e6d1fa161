package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// stockSummary 返回库存水平汇总。
func (s *Set) stockSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	warehouse := stringParam(params, "warehouse")

	bins, err := s.backend.List(ctx, "Bin", func(record map[string]any) bool {
		return warehouse == "" || fieldString(record, "warehouse", "") == warehouse
	})
	if err != nil {
		return nil, err
	}

	var totalQty, totalValue float64
	for _, bin := range bins {
		totalQty += fieldFloat(bin, "actual_qty")
		totalValue += fieldFloat(bin, "stock_value")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 个库存条目", len(bins)),
		Data: map[string]any{
			"items":       bins,
			"total_count": len(bins),
			"total_qty":   totalQty,
			"total_value": totalValue,
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// lowStockItems 返回低于补货水位的物料。
func (s *Set) lowStockItems(ctx context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
	bins, err := s.backend.List(ctx, "Bin", func(record map[string]any) bool {
		reorder := fieldFloat(record, "reorder_level")
		return reorder > 0 && fieldFloat(record, "actual_qty") < reorder
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("%d 个物料低于补货水位", len(bins)),
		Data: map[string]any{
			"items":       bins,
			"total_count": len(bins),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
