package action

// DefaultCatalog 返回内置的默认动作目录。部署方可以用文件或数据库目录
// 覆盖它；未配置目录来源时注册表加载这份清单。
func DefaultCatalog() []Action {
	return []Action{
		{
			Name:         "view_leads_summary",
			Category:     CategoryQuery,
			Module:       "CRM",
			Description:  "View summary of leads",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:      "crm.get_leads_summary",
			Enabled:      true,
		},
		{
			Name:         "view_opportunities",
			Category:     CategoryQuery,
			Module:       "CRM",
			Description:  "View opportunities",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:      "crm.get_opportunities",
			Enabled:      true,
		},
		{
			Name:                 "convert_lead_to_customer",
			Category:             CategoryApprove,
			Module:               "CRM",
			Description:          "Convert a lead to customer",
			RiskLevel:            RiskMedium,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"Sales Manager", "System Manager"},
			Handler:              "crm.convert_lead_to_customer",
			Enabled:              true,
		},
		{
			Name:         "get_customer_summary",
			Category:     CategoryQuery,
			Module:       "CRM",
			Description:  "Get customer list with revenue analytics",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "Accounts User", "System Manager"},
			Handler:      "crm.get_customer_summary",
			Enabled:      true,
		},
		{
			Name:         "view_sales_orders",
			Category:     CategoryQuery,
			Module:       "Selling",
			Description:  "View sales orders",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:      "selling.get_sales_orders",
			Enabled:      true,
		},
		{
			Name:         "get_pending_sales_orders",
			Category:     CategoryQuery,
			Module:       "Selling",
			Description:  "Get pending/outstanding sales orders",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:      "selling.get_pending_sales_orders",
			Enabled:      true,
		},
		{
			Name:         "get_quotations_summary",
			Category:     CategoryQuery,
			Module:       "Selling",
			Description:  "View quotations with conversion rate tracking",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:      "selling.get_quotations_summary",
			Enabled:      true,
		},
		{
			Name:                 "create_sales_order_draft",
			Category:             CategoryDraft,
			Module:               "Selling",
			Description:          "Create a draft sales order",
			RiskLevel:            RiskMedium,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:              "selling.create_sales_order_draft",
			Enabled:              true,
		},
		{
			Name:                 "submit_sales_order",
			Category:             CategoryPost,
			Module:               "Selling",
			Description:          "Submit a sales order for processing",
			RiskLevel:            RiskHigh,
			AllowedRoles:         []string{"Sales Manager", "System Manager"},
			Handler:              "selling.submit_sales_order",
			Enabled:              true,
		},
		{
			Name:         "view_purchase_orders",
			Category:     CategoryQuery,
			Module:       "Buying",
			Description:  "View purchase orders",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Purchase User", "Purchase Manager", "System Manager"},
			Handler:      "buying.get_purchase_orders",
			Enabled:      true,
		},
		{
			Name:                 "draft_purchase_order",
			Category:             CategoryDraft,
			Module:               "Buying",
			Description:          "Create a draft purchase order",
			RiskLevel:            RiskMedium,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"Purchase User", "Purchase Manager", "System Manager"},
			Handler:              "buying.create_purchase_order_draft",
			Enabled:              true,
		},
		{
			Name:         "view_stock_summary",
			Category:     CategoryQuery,
			Module:       "Stock",
			Description:  "View stock levels and summary",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Stock User", "Stock Manager", "System Manager"},
			Handler:      "stock.get_stock_summary",
			Enabled:      true,
		},
		{
			Name:         "view_low_stock_items",
			Category:     CategoryQuery,
			Module:       "Stock",
			Description:  "View items below reorder level",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Stock User", "Stock Manager", "System Manager"},
			Handler:      "stock.get_low_stock_items",
			Enabled:      true,
		},
		{
			Name:         "view_account_balances",
			Category:     CategoryQuery,
			Module:       "Accounting",
			Description:  "View account balances",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Accounts User", "Accounts Manager", "System Manager"},
			Handler:      "accounting.get_account_balances",
			Enabled:      true,
		},
		{
			Name:                 "draft_journal_entry",
			Category:             CategoryDraft,
			Module:               "Accounting",
			Description:          "Create a draft journal entry",
			RiskLevel:            RiskHigh,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"Accounts User", "Accounts Manager", "System Manager"},
			Handler:              "accounting.create_journal_entry_draft",
			Enabled:              true,
		},
		{
			Name:                 "post_journal_entry",
			Category:             CategoryPost,
			Module:               "Accounting",
			Description:          "Post a journal entry to the ledger",
			RiskLevel:            RiskCritical,
			AllowedRoles:         []string{"Accounts Manager", "System Manager"},
			Handler:              "accounting.post_journal_entry",
			Enabled:              true,
		},
		{
			Name:         "view_employee_list",
			Category:     CategoryQuery,
			Module:       "HR",
			Description:  "View employee list",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"HR User", "HR Manager", "System Manager"},
			Handler:      "hr.get_employee_list",
			Enabled:      true,
		},
		{
			Name:                 "approve_leave_application",
			Category:             CategoryApprove,
			Module:               "HR",
			Description:          "Approve a leave application",
			RiskLevel:            RiskMedium,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"HR Manager", "System Manager"},
			Handler:              "hr.approve_leave",
			Enabled:              true,
		},
		{
			Name:                 "execute_payroll",
			Category:             CategoryExecutePayroll,
			Module:               "Payroll",
			Description:          "Execute payroll for a period",
			RiskLevel:            RiskCritical,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"HR Manager", "System Manager"},
			Handler:              "payroll.execute_payroll",
			Enabled:              true,
		},
		{
			Name:         "view_salary_slips",
			Category:     CategoryQuery,
			Module:       "Payroll",
			Description:  "View salary slips for a period",
			RiskLevel:    RiskMedium,
			AllowedRoles: []string{"HR Manager", "System Manager"},
			Handler:      "payroll.get_salary_slips",
			Enabled:      true,
		},
		{
			Name:         "view_projects_summary",
			Category:     CategoryQuery,
			Module:       "Projects",
			Description:  "View projects summary",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Projects User", "Projects Manager", "System Manager"},
			Handler:      "projects.get_projects_summary",
			Enabled:      true,
		},
		{
			Name:         "view_tasks_summary",
			Category:     CategoryQuery,
			Module:       "Projects",
			Description:  "View tasks summary",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Projects User", "Projects Manager", "System Manager"},
			Handler:      "projects.get_tasks_summary",
			Enabled:      true,
		},
		{
			Name:         "view_work_orders",
			Category:     CategoryQuery,
			Module:       "Manufacturing",
			Description:  "View work orders",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Manufacturing User", "Manufacturing Manager", "System Manager"},
			Handler:      "manufacturing.get_work_orders",
			Enabled:      true,
		},
		{
			Name:         "view_bom_summary",
			Category:     CategoryQuery,
			Module:       "Manufacturing",
			Description:  "View Bill of Materials summary",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Manufacturing User", "Manufacturing Manager", "System Manager"},
			Handler:      "manufacturing.get_bom_summary",
			Enabled:      true,
		},
		{
			Name:         "view_issues_summary",
			Category:     CategoryQuery,
			Module:       "Support",
			Description:  "View support issues summary",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Support Team", "System Manager"},
			Handler:      "support.get_issues_summary",
			Enabled:      true,
		},
		{
			Name:         "view_assets_summary",
			Category:     CategoryQuery,
			Module:       "Assets",
			Description:  "View assets summary",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Stock User", "Accounts User", "System Manager"},
			Handler:      "assets.get_assets_summary",
			Enabled:      true,
		},
		{
			Name:         "view_asset_maintenance_schedule",
			Category:     CategoryQuery,
			Module:       "Assets",
			Description:  "View asset maintenance schedule",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Stock User", "Accounts User", "System Manager"},
			Handler:      "assets.get_asset_maintenance_schedule",
			Enabled:      true,
		},
		{
			Name:         "view_quality_inspections",
			Category:     CategoryQuery,
			Module:       "Quality",
			Description:  "View quality inspections",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Quality Manager", "Stock User", "System Manager"},
			Handler:      "quality.get_quality_inspections",
			Enabled:      true,
		},
		{
			Name:         "view_quality_goals",
			Category:     CategoryQuery,
			Module:       "Quality",
			Description:  "View quality goals",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Quality Manager", "System Manager"},
			Handler:      "quality.get_quality_goals",
			Enabled:      true,
		},
		{
			Name:         "view_maintenance_schedule",
			Category:     CategoryQuery,
			Module:       "Maintenance",
			Description:  "View maintenance schedule",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "System Manager"},
			Handler:      "maintenance.get_maintenance_schedule",
			Enabled:      true,
		},
		{
			Name:         "view_maintenance_visits",
			Category:     CategoryQuery,
			Module:       "Maintenance",
			Description:  "View maintenance visits",
			RiskLevel:    RiskLow,
			AllowedRoles: []string{"Sales User", "System Manager"},
			Handler:      "maintenance.get_maintenance_visits",
			Enabled:      true,
		},
	}
}
