package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// assetsSummary 返回固定资产汇总、总价值与状态分布。
func (s *Set) assetsSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	category := stringParam(params, "asset_category")
	status := stringParam(params, "status")
	location := stringParam(params, "location")

	assets, err := s.backend.List(ctx, "Asset", func(record map[string]any) bool {
		if category != "" && fieldString(record, "asset_category", "") != category {
			return false
		}
		if status != "" && fieldString(record, "status", "") != status {
			return false
		}
		if location != "" && fieldString(record, "location", "") != location {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var totalValue float64
	for _, asset := range assets {
		totalValue += fieldFloat(asset, "gross_purchase_amount")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 项资产", len(assets)),
		Data: map[string]any{
			"assets":           assets,
			"total_count":      len(assets),
			"total_value":      totalValue,
			"status_breakdown": breakdown(assets, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// assetMaintenanceSchedule 返回资产维保任务。
func (s *Set) assetMaintenanceSchedule(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	asset := stringParam(params, "asset")

	tasks, err := s.backend.List(ctx, "Asset Maintenance Task", func(record map[string]any) bool {
		return asset == "" || fieldString(record, "asset_name", "") == asset
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 项维保任务", len(tasks)),
		Data: map[string]any{
			"maintenance_tasks": tasks,
			"total_count":       len(tasks),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
