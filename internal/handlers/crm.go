package handlers

import (
	"context"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// leadsSummary 返回线索列表及状态、来源分布。
func (s *Set) leadsSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	source := stringParam(params, "source")

	leads, err := s.backend.List(ctx, "Lead", func(record map[string]any) bool {
		if status != "" && fieldString(record, "status", "") != status {
			return false
		}
		if source != "" && fieldString(record, "source", "") != source {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 条线索", len(leads)),
		Data: map[string]any{
			"leads":            leads,
			"total":            len(leads),
			"status_breakdown": breakdown(leads, "status"),
			"source_breakdown": breakdown(leads, "source"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// opportunities 返回商机列表及金额与加权金额汇总。
func (s *Set) opportunities(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")

	opportunities, err := s.backend.List(ctx, "Opportunity", func(record map[string]any) bool {
		return status == "" || fieldString(record, "status", "") == status
	})
	if err != nil {
		return nil, err
	}

	var totalAmount, weightedAmount float64
	for _, opp := range opportunities {
		amount := fieldFloat(opp, "opportunity_amount")
		totalAmount += amount
		weightedAmount += amount * fieldFloat(opp, "probability") / 100
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个商机", len(opportunities)),
		Data: map[string]any{
			"opportunities":    opportunities,
			"total_count":      len(opportunities),
			"total_amount":     totalAmount,
			"weighted_amount":  weightedAmount,
			"status_breakdown": breakdown(opportunities, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// convertLeadToCustomer 把线索转换为客户。
func (s *Set) convertLeadToCustomer(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	leadName := stringParam(params, "lead")
	if leadName == "" {
		return missingParam("缺少必填参数 lead"), nil
	}

	lead, err := s.backend.Get(ctx, "Lead", leadName)
	if err != nil {
		return nil, err
	}
	if fieldString(lead, "status", "") == "Converted" {
		return action.Failure(action.ErrValidation, "该线索已经转换过"), nil
	}

	ok, err := s.records.HasRecordPermission(ctx, user, "Lead", leadName, "write")
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Failure(action.ErrPermissionDenied, "你没有修改该线索的权限"), nil
	}

	customerName, err := s.backend.Insert(ctx, "Customer", map[string]any{
		"customer_name": fieldString(lead, "lead_name", leadName),
		"customer_type": "Company",
		"lead":          leadName,
	})
	if err != nil {
		return nil, err
	}
	if err := s.backend.Update(ctx, "Lead", leadName, map[string]any{"status": "Converted"}); err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "线索已转换为客户: " + customerName,
		Data: map[string]any{
			"customer":      customerName,
			"customer_name": fieldString(lead, "lead_name", leadName),
		},
		Type:     action.TypeAction,
		Category: action.CategoryApprove,
	}, nil
}

// customerSummary 返回客户列表及收入汇总。
func (s *Set) customerSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	group := stringParam(params, "customer_group")

	customers, err := s.backend.List(ctx, "Customer", func(record map[string]any) bool {
		return group == "" || fieldString(record, "customer_group", "") == group
	})
	if err != nil {
		return nil, err
	}

	invoices, err := s.backend.List(ctx, "Sales Invoice", nil)
	if err != nil {
		return nil, err
	}
	revenue := make(map[string]float64)
	orders := make(map[string]int)
	for _, invoice := range invoices {
		customer := fieldString(invoice, "customer", "")
		revenue[customer] += fieldFloat(invoice, "grand_total")
		orders[customer]++
	}
	for _, customer := range customers {
		name := fieldString(customer, "name", "")
		customer["total_revenue"] = revenue[name]
		customer["order_count"] = orders[name]
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个客户", len(customers)),
		Data: map[string]any{
			"customers":   customers,
			"total_count": len(customers),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}
