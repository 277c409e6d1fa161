package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// qualityInspections 返回质检记录与结论分布。
func (s *Set) qualityInspections(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	inspectionType := stringParam(params, "inspection_type")
	itemCode := stringParam(params, "item_code")

	inspections, err := s.backend.List(ctx, "Quality Inspection", func(record map[string]any) bool {
		if status != "" && fieldString(record, "status", "") != status {
			return false
		}
		if inspectionType != "" && fieldString(record, "inspection_type", "") != inspectionType {
			return false
		}
		if itemCode != "" && fieldString(record, "item_code", "") != itemCode {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 条质检记录", len(inspections)),
		Data: map[string]any{
			"inspections":      inspections,
			"total_count":      len(inspections),
			"status_breakdown": breakdown(inspections, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// qualityGoals 返回质量目标清单。
func (s *Set) qualityGoals(ctx context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
	goals, err := s.backend.List(ctx, "Quality Goal", nil)
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个质量目标", len(goals)),
		Data: map[string]any{
			"goals":       goals,
			"total_count": len(goals),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
