package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
)

// salesOrders 返回销售订单及交付、开票状态。
func (s *Set) salesOrders(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")
	customer := stringParam(params, "customer")

	orders, err := s.backend.List(ctx, "Sales Order", func(record map[string]any) bool {
		if status != "" && fieldString(record, "status", "") != status {
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

	var totalAmount float64
	for _, order := range orders {
		totalAmount += fieldFloat(order, "grand_total")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个销售订单", len(orders)),
		Data: map[string]any{
			"orders":           orders,
			"total_count":      len(orders),
			"total_amount":     totalAmount,
			"status_breakdown": breakdown(orders, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// pendingSalesOrders 返回未完成交付或开票的销售订单。
// 草稿与已完成、已关闭、已取消的订单不计入。
func (s *Set) pendingSalesOrders(ctx context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
	excluded := map[string]bool{"Draft": true, "Completed": true, "Closed": true, "Cancelled": true}
	orders, err := s.backend.List(ctx, "Sales Order", func(record map[string]any) bool {
		if excluded[fieldString(record, "status", "")] {
			return false
		}
		return fieldFloat(record, "per_delivered") < 100 || fieldFloat(record, "per_billed") < 100
	})
	if err != nil {
		return nil, err
	}

	today := time.Now().Format("2006-01-02")
	var totalOutstanding float64
	overdue := 0
	for _, order := range orders {
		totalOutstanding += fieldFloat(order, "grand_total") - fieldFloat(order, "advance_paid")
		if due := fieldString(order, "delivery_date", ""); due != "" && due < today {
			overdue++
		}
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 个待处理销售订单", len(orders)),
		Data: map[string]any{
			"pending_orders":    orders,
			"total_count":       len(orders),
			"overdue_count":     overdue,
			"total_outstanding": totalOutstanding,
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// quotationsSummary 返回报价单及转化率。
func (s *Set) quotationsSummary(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	status := stringParam(params, "status")

	quotations, err := s.backend.List(ctx, "Quotation", func(record map[string]any) bool {
		return status == "" || fieldString(record, "status", "") == status
	})
	if err != nil {
		return nil, err
	}

	ordered := 0
	for _, quotation := range quotations {
		if fieldString(quotation, "status", "") == "Ordered" {
			ordered++
		}
	}
	conversionRate := 0.0
	if len(quotations) > 0 {
		conversionRate = float64(ordered) / float64(len(quotations)) * 100
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("找到 %d 张报价单，转化率 %.2f%%", len(quotations), conversionRate),
		Data: map[string]any{
			"quotations":       quotations,
			"total_count":      len(quotations),
			"ordered_count":    ordered,
			"conversion_rate":  conversionRate,
			"status_breakdown": breakdown(quotations, "status"),
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// createSalesOrderDraft 创建销售订单草稿，不提交。
func (s *Set) createSalesOrderDraft(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	customer := stringParam(params, "customer")
	if customer == "" {
		return missingParam("缺少必填参数 customer"), nil
	}

	draft := map[string]any{
		"customer":    customer,
		"status":      "Draft",
		"order_owner": user.Name,
	}
	if item := stringParam(params, "item"); item != "" {
		draft["item"] = item
	}
	if qty, ok := floatParam(params, "qty"); ok {
		draft["qty"] = qty
	}
	if amount, ok := floatParam(params, "grand_total"); ok {
		draft["grand_total"] = amount
	}

	name, err := s.backend.Insert(ctx, "Sales Order", draft)
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "销售订单草稿已创建，请审核后提交。",
		Data: map[string]any{
			"record_type": "Sales Order",
			"record":      name,
			"doc":         draft,
		},
		Type:     action.TypeDraft,
		Category: action.CategoryDraft,
	}, nil
}

// submitSalesOrder 提交销售订单，属于 POST 类动作。
func (s *Set) submitSalesOrder(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	name := stringParam(params, "sales_order")
	if name == "" {
		return missingParam("缺少必填参数 sales_order"), nil
	}

	order, err := s.backend.Get(ctx, "Sales Order", name)
	if err != nil {
		return nil, err
	}
	if fieldString(order, "status", "") != "Draft" {
		return action.Failure(action.ErrValidation, "只有草稿状态的订单可以提交"), nil
	}

	ok, err := s.records.HasRecordPermission(ctx, user, "Sales Order", name, "submit")
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Failure(action.ErrPermissionDenied, "你没有提交该订单的权限"), nil
	}

	if err := s.backend.Update(ctx, "Sales Order", name, map[string]any{"status": "To Deliver and Bill"}); err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "销售订单已提交: " + name,
		Data: map[string]any{
			"record": name,
			"status": "To Deliver and Bill",
		},
		Type:     action.TypeAction,
		Category: action.CategoryPost,
	}, nil
}
