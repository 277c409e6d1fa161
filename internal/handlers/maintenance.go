package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// maintenanceSchedule 返回客户维保计划。
func (s *Set) maintenanceSchedule(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	customer := stringParam(params, "customer")

	schedules, err := s.backend.List(ctx, "Maintenance Schedule", func(record map[string]any) bool {
		return customer == "" || fieldString(record, "customer", "") == customer
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 份维保计划", len(schedules)),
		Data: map[string]any{
			"schedules":   schedules,
			"total_count": len(schedules),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// maintenanceVisits 返回维保上门记录。status 参数匹配完成状态字段。
func (s *Set) maintenanceVisits(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	customer := stringParam(params, "customer")

	visits, err := s.backend.List(ctx, "Maintenance Visit", func(record map[string]any) bool {
		if status != "" && fieldString(record, "completion_status", "") != status {
			return false
		}
		if customer != "" && fieldString(record, "customer", "") != customer {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 次维保上门", len(visits)),
		Data: map[string]any{
			"visits":      visits,
			"total_count": len(visits),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
