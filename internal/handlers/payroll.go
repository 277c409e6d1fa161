package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// executePayroll 为指定工资单条目生成工资条。最高风险的动作，
// 只会经由确认路径到达这里。
func (s *Set) executePayroll(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	entryName := stringParam(params, "payroll_entry")
	if entryName == "" {
		return missingParam("缺少必填参数 payroll_entry"), nil
	}

	entry, err := s.backend.Get(ctx, "Payroll Entry", entryName)
	if err != nil {
		return nil, err
	}

	ok, err := s.records.HasRecordPermission(ctx, user, "Payroll Entry", entryName, "write")
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Failure(action.ErrPermissionDenied, "你没有执行该工资单的权限"), nil
	}

	if fieldString(entry, "status", "") == "Submitted" {
		return action.Failure(action.ErrValidation, "该工资单已经提交"), nil
	}

	employees, err := s.backend.List(ctx, "Employee", func(record map[string]any) bool {
		company := fieldString(entry, "company", "")
		return company == "" || fieldString(record, "company", "") == company
	})
	if err != nil {
		return nil, err
	}

	period := fieldString(entry, "period", "")
	for _, employee := range employees {
		employeeName := fieldString(employee, "name", "")
		if _, err := s.backend.Insert(ctx, "Salary Slip", map[string]any{
			"employee":      employeeName,
			"payroll_entry": entryName,
			"period":        period,
			"amount":        fieldFloat(employee, "salary"),
		}); err != nil {
			return nil, err
		}
	}
	if err := s.backend.Update(ctx, "Payroll Entry", entryName, map[string]any{
		"status":               "Salary Slips Created",
		"salary_slips_created": true,
	}); err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("已为 %d 名员工生成工资条，请审核后提交工资单。", len(employees)),
		Data: map[string]any{
			"payroll_entry":   entryName,
			"total_employees": len(employees),
			"payroll_period":  period,
			"company":         fieldString(entry, "company", ""),
		},
		Type:     action.TypeAction,
		Category: action.CategoryExecutePayroll,
	}, nil
}

// salarySlips 返回指定周期的工资条。
func (s *Set) salarySlips(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	period := stringParam(params, "period")

	slips, err := s.backend.List(ctx, "Salary Slip", func(record map[string]any) bool {
		return period == "" || fieldString(record, "period", "") == period
	})
	if err != nil {
		return nil, err
	}

	var totalAmount float64
	for _, slip := range slips {
		totalAmount += fieldFloat(slip, "amount")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 张工资条", len(slips)),
		Data: map[string]any{
			"salary_slips": slips,
			"total_count":  len(slips),
			"total_amount": totalAmount,
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
