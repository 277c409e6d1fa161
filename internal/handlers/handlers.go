package handlers

import (
	"strings"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/guard"
)

// Set 持有全部处理函数共享的依赖。
type Set struct {
	backend Backend
	records guard.RecordAuthorizer
}

// NewSet 创建处理函数集合。records 为 nil 时跳过记录级鉴权。
func NewSet(backend Backend, records guard.RecordAuthorizer) *Set {
	if records == nil {
		records = guard.New(nil).Records()
	}
	return &Set{backend: backend, records: records}
}

// Map 返回处理函数表，键是动作目录里的 handler 引用。
// 表在启动时交给执行器，之后不再变化。
func (s *Set) Map() map[string]action.Handler {
	return map[string]action.Handler{
		"crm.get_leads_summary":                 s.leadsSummary,
		"crm.get_opportunities":                 s.opportunities,
		"crm.convert_lead_to_customer":          s.convertLeadToCustomer,
		"crm.get_customer_summary":              s.customerSummary,
		"selling.get_sales_orders":              s.salesOrders,
		"selling.get_pending_sales_orders":      s.pendingSalesOrders,
		"selling.get_quotations_summary":        s.quotationsSummary,
		"selling.create_sales_order_draft":      s.createSalesOrderDraft,
		"selling.submit_sales_order":            s.submitSalesOrder,
		"buying.get_purchase_orders":            s.purchaseOrders,
		"buying.create_purchase_order_draft":    s.createPurchaseOrderDraft,
		"stock.get_stock_summary":               s.stockSummary,
		"stock.get_low_stock_items":             s.lowStockItems,
		"accounting.get_account_balances":       s.accountBalances,
		"accounting.create_journal_entry_draft": s.createJournalEntryDraft,
		"accounting.post_journal_entry":         s.postJournalEntry,
		"hr.get_employee_list":                  s.employeeList,
		"hr.approve_leave":                      s.approveLeave,
		"payroll.execute_payroll":               s.executePayroll,
		"payroll.get_salary_slips":              s.salarySlips,
		"projects.get_projects_summary":         s.projectsSummary,
		"projects.get_tasks_summary":            s.tasksSummary,
		"manufacturing.get_work_orders":         s.workOrders,
		"manufacturing.get_bom_summary":         s.bomSummary,
		"support.get_issues_summary":            s.issuesSummary,
		"assets.get_assets_summary":             s.assetsSummary,
		"assets.get_asset_maintenance_schedule": s.assetMaintenanceSchedule,
		"quality.get_quality_inspections":       s.qualityInspections,
		"quality.get_quality_goals":             s.qualityGoals,
		"maintenance.get_maintenance_schedule":  s.maintenanceSchedule,
		"maintenance.get_maintenance_visits":    s.maintenanceVisits,
	}
}

// stringParam 读取字符串参数，缺失或类型不符时返回空串。
func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	value, _ := params[key].(string)
	return strings.TrimSpace(value)
}

// floatParam 读取数值参数，JSON 反序列化后的数字统一是 float64。
func floatParam(params map[string]any, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// boolParam 读取布尔参数，缺失或类型不符时返回 false。
func boolParam(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	value, _ := params[key].(bool)
	return value
}

// fieldString 读取记录字段的字符串值，缺失时返回 fallback。
func fieldString(record map[string]any, key, fallback string) string {
	if value, ok := record[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

// fieldFloat 读取记录字段的数值。
func fieldFloat(record map[string]any, key string) float64 {
	switch v := record[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// fieldBool 读取记录字段的布尔值。
func fieldBool(record map[string]any, key string) bool {
	value, _ := record[key].(bool)
	return value
}

// breakdown 统计记录在某个字段上的分布。
func breakdown(records []map[string]any, key string) map[string]int {
	counts := make(map[string]int)
	for _, record := range records {
		counts[fieldString(record, key, "Unknown")]++
	}
	return counts
}

// missingParam 构造缺失必填参数的失败结果。
func missingParam(message string) *action.Result {
	return action.Failure(action.ErrValidation, message)
}
