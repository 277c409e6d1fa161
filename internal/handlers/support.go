package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// issuesSummary 返回工单列表及状态、优先级分布。
func (s *Set) issuesSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	priority := stringParam(params, "priority")

	issues, err := s.backend.List(ctx, "Issue", func(record map[string]any) bool {
		if status != "" && fieldString(record, "status", "") != status {
			return false
		}
		if priority != "" && fieldString(record, "priority", "") != priority {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	open := 0
	for _, issue := range issues {
		if fieldString(issue, "status", "") == "Open" {
			open++
		}
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 个工单，其中 %d 个未关闭", len(issues), open),
		Data: map[string]any{
			"issues":             issues,
			"total_count":        len(issues),
			"open_count":         open,
			"status_breakdown":   breakdown(issues, "status"),
			"priority_breakdown": breakdown(issues, "priority"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
