package handlers

import "context"

// SeedDemoData 向后端写入一组演示记录，供开发环境与冒烟验证使用。
func SeedDemoData(ctx context.Context, backend Backend) error {
	seeds := map[string][]map[string]any{
		"Lead": {
			{"name": "LEAD-0001", "lead_name": "Zhang Wei", "status": "Open", "source": "Website"},
			{"name": "LEAD-0002", "lead_name": "Li Na", "status": "Replied", "source": "Campaign"},
			{"name": "LEAD-0003", "lead_name": "Wang Fang", "status": "Open", "source": "Referral"},
		},
		"Opportunity": {
			{"name": "OPTY-0001", "party_name": "ACME", "status": "Open", "opportunity_amount": 50000.0, "probability": 60.0},
			{"name": "OPTY-0002", "party_name": "Globex", "status": "Quotation", "opportunity_amount": 120000.0, "probability": 40.0},
		},
		"Customer": {
			{"name": "CUST-0001", "customer_name": "ACME", "customer_group": "Commercial"},
			{"name": "CUST-0002", "customer_name": "Globex", "customer_group": "Commercial"},
		},
		"Sales Invoice": {
			{"name": "SINV-0001", "customer": "CUST-0001", "grand_total": 18000.0},
			{"name": "SINV-0002", "customer": "CUST-0001", "grand_total": 9500.0},
		},
		"Sales Order": {
			{"name": "SO-0001", "customer": "CUST-0001", "status": "Draft", "grand_total": 30000.0},
			{"name": "SO-0002", "customer": "CUST-0002", "status": "To Deliver and Bill", "grand_total": 45000.0, "per_delivered": 40.0, "per_billed": 0.0, "advance_paid": 5000.0, "delivery_date": "2026-08-15"},
			{"name": "SO-0003", "customer": "CUST-0001", "status": "To Bill", "grand_total": 20000.0, "per_delivered": 100.0, "per_billed": 20.0, "advance_paid": 8000.0, "delivery_date": "2099-01-01"},
			{"name": "SO-0004", "customer": "CUST-0002", "status": "Completed", "grand_total": 15000.0, "per_delivered": 100.0, "per_billed": 100.0},
		},
		"Quotation": {
			{"name": "QTN-0001", "customer": "CUST-0001", "status": "Open"},
			{"name": "QTN-0002", "customer": "CUST-0002", "status": "Ordered"},
		},
		"Purchase Order": {
			{"name": "PO-0001", "supplier": "Initech", "status": "Draft", "grand_total": 12000.0},
		},
		"Bin": {
			{"name": "BIN-0001", "item": "Widget", "warehouse": "Main", "actual_qty": 120.0, "reorder_level": 50.0, "stock_value": 6000.0},
			{"name": "BIN-0002", "item": "Gear", "warehouse": "Main", "actual_qty": 8.0, "reorder_level": 20.0, "stock_value": 1600.0},
		},
		"Account": {
			{"name": "ACC-CASH", "account_name": "Cash", "root_type": "Asset", "balance": 100000.0},
			{"name": "ACC-SALES", "account_name": "Sales", "root_type": "Income", "balance": 250000.0},
		},
		"Employee": {
			{"name": "EMP-0001", "employee_name": "Chen Jie", "department": "Sales", "company": "ACME Corp", "salary": 12000.0},
			{"name": "EMP-0002", "employee_name": "Liu Yang", "department": "HR", "company": "ACME Corp", "salary": 10000.0},
		},
		"Leave Application": {
			{"name": "LAP-0001", "employee": "EMP-0001", "status": "Open", "leave_type": "Annual"},
		},
		"Payroll Entry": {
			{"name": "PR-2026-08", "company": "ACME Corp", "period": "2026-08", "status": "Draft"},
		},
		"Project": {
			{"name": "PROJ-0001", "project_name": "Website Revamp", "status": "Open", "percent_complete": 45.0},
		},
		"Task": {
			{"name": "TASK-0001", "project": "PROJ-0001", "status": "Open", "priority": "High"},
			{"name": "TASK-0002", "project": "PROJ-0001", "status": "Completed", "priority": "Medium"},
		},
		"Issue": {
			{"name": "ISS-0001", "subject": "Login failure", "status": "Open", "priority": "High"},
			{"name": "ISS-0002", "subject": "Report typo", "status": "Closed", "priority": "Low"},
		},
		"Work Order": {
			{"name": "WO-0001", "production_item": "Widget", "qty": 100.0, "produced_qty": 60.0, "status": "In Process", "planned_start_date": "2026-08-01"},
			{"name": "WO-0002", "production_item": "Gear", "qty": 50.0, "produced_qty": 50.0, "status": "Completed", "planned_start_date": "2026-07-10"},
		},
		"BOM": {
			{"name": "BOM-0001", "item": "Widget", "quantity": 1.0, "is_active": true, "is_default": true, "total_cost": 42.5},
			{"name": "BOM-0002", "item": "Gear", "quantity": 1.0, "is_active": false, "is_default": false, "total_cost": 18.0},
		},
		"Asset": {
			{"name": "AST-0001", "asset_name": "Forklift", "asset_category": "Equipment", "status": "In Use", "location": "Main", "gross_purchase_amount": 80000.0, "custodian": "EMP-0001"},
			{"name": "AST-0002", "asset_name": "Laptop", "asset_category": "IT", "status": "Scrapped", "location": "Office", "gross_purchase_amount": 6000.0, "custodian": "EMP-0002"},
		},
		"Asset Maintenance Task": {
			{"name": "AMT-0001", "asset_name": "Forklift", "maintenance_type": "Preventive", "next_due_date": "2026-09-15", "maintenance_status": "Planned", "periodicity": "Monthly"},
		},
		"Quality Inspection": {
			{"name": "QI-0001", "item_code": "Widget", "inspection_type": "Incoming", "status": "Accepted", "report_date": "2026-08-20"},
			{"name": "QI-0002", "item_code": "Gear", "inspection_type": "Outgoing", "status": "Rejected", "report_date": "2026-08-21"},
		},
		"Quality Goal": {
			{"name": "QG-0001", "goal": "Incoming defect rate below 1%", "frequency": "Monthly"},
		},
		"Maintenance Schedule": {
			{"name": "MS-0001", "customer": "CUST-0001", "transaction_date": "2026-08-01", "status": "Submitted"},
		},
		"Maintenance Visit": {
			{"name": "MV-0001", "customer": "CUST-0001", "mntc_date": "2026-08-10", "completion_status": "Fully Completed", "maintenance_type": "Scheduled"},
			{"name": "MV-0002", "customer": "CUST-0002", "mntc_date": "2026-08-18", "completion_status": "Partially Completed", "maintenance_type": "Breakdown"},
		},
	}

	for recordType, records := range seeds {
		for _, record := range records {
			if _, err := backend.Insert(ctx, recordType, record); err != nil {
				return err
			}
		}
	}
	return nil
}
