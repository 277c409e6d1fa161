package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// projectsSummary 返回项目列表及进度分布。
func (s *Set) projectsSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")

	projects, err := s.backend.List(ctx, "Project", func(record map[string]any) bool {
		return status == "" || fieldString(record, "status", "") == status
	})
	if err != nil {
		return nil, err
	}

	var totalProgress float64
	for _, project := range projects {
		totalProgress += fieldFloat(project, "percent_complete")
	}
	avgProgress := 0.0
	if len(projects) > 0 {
		avgProgress = totalProgress / float64(len(projects))
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 个项目，平均进度 %.1f%%", len(projects), avgProgress),
		Data: map[string]any{
			"projects":         projects,
			"total_count":      len(projects),
			"avg_progress":     avgProgress,
			"status_breakdown": breakdown(projects, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// tasksSummary 返回任务列表及状态、优先级分布。
func (s *Set) tasksSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	project := stringParam(params, "project")

	tasks, err := s.backend.List(ctx, "Task", func(record map[string]any) bool {
		return project == "" || fieldString(record, "project", "") == project
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 个任务", len(tasks)),
		Data: map[string]any{
			"tasks":              tasks,
			"total_count":        len(tasks),
			"status_breakdown":   breakdown(tasks, "status"),
			"priority_breakdown": breakdown(tasks, "priority"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
