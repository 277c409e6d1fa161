package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// employeeList 返回员工列表。
func (s *Set) employeeList(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	department := stringParam(params, "department")

	employees, err := s.backend.List(ctx, "Employee", func(record map[string]any) bool {
		return department == "" || fieldString(record, "department", "") == department
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 名员工", len(employees)),
		Data: map[string]any{
			"employees":            employees,
			"total_count":          len(employees),
			"department_breakdown": breakdown(employees, "department"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// approveLeave 批准请假申请。
func (s *Set) approveLeave(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	name := stringParam(params, "leave_application")
	if name == "" {
		return missingParam("缺少必填参数 leave_application"), nil
	}

	application, err := s.backend.Get(ctx, "Leave Application", name)
	if err != nil {
		return nil, err
	}
	if fieldString(application, "status", "") != "Open" {
		return action.Failure(action.ErrValidation, "该请假申请不在待审批状态"), nil
	}

	ok, err := s.records.HasRecordPermission(ctx, user, "Leave Application", name, "write")
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Failure(action.ErrPermissionDenied, "你没有审批该请假申请的权限"), nil
	}

	if err := s.backend.Update(ctx, "Leave Application", name, map[string]any{
		"status":      "Approved",
		"approved_by": user.Name,
	}); err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "请假申请已批准: " + name,
		Data: map[string]any{
			"record":   name,
			"employee": fieldString(application, "employee", ""),
		},
		Type:     action.TypeAction,
		Category: action.CategoryApprove,
	}, nil
}
