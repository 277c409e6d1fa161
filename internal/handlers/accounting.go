package handlers

import (
	"context"
	"fmt"
	"math"

	"github.com/africanwebguy/erpassist/internal/action"
)

// accountBalances 返回科目余额。
func (s *Set) accountBalances(ctx context.Context, params map[string]any, _ action.Identity) (*action.Result, error) {
	rootType := stringParam(params, "root_type")

	accounts, err := s.backend.List(ctx, "Account", func(record map[string]any) bool {
		return rootType == "" || fieldString(record, "root_type", "") == rootType
	})
	if err != nil {
		return nil, err
	}

	var totalBalance float64
	for _, account := range accounts {
		totalBalance += fieldFloat(account, "balance")
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("共 %d 个科目", len(accounts)),
		Data: map[string]any{
			"accounts":      accounts,
			"total_count":   len(accounts),
			"total_balance": totalBalance,
		},
		Type:     action.TypeTable,
		Category: action.CategoryQuery,
	}, nil
}

// createJournalEntryDraft 创建凭证草稿，要求借贷平衡。
func (s *Set) createJournalEntryDraft(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	debitAccount := stringParam(params, "debit_account")
	creditAccount := stringParam(params, "credit_account")
	amount, hasAmount := floatParam(params, "amount")

	if debitAccount == "" || creditAccount == "" {
		return missingParam("缺少必填参数 debit_account / credit_account"), nil
	}
	if !hasAmount || amount <= 0 || math.IsNaN(amount) {
		return missingParam("amount 必须是正数"), nil
	}

	draft := map[string]any{
		"debit_account":  debitAccount,
		"credit_account": creditAccount,
		"amount":         amount,
		"remark":         stringParam(params, "remark"),
		"status":         "Draft",
		"created_by":     user.Name,
	}
	name, err := s.backend.Insert(ctx, "Journal Entry", draft)
	if err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "凭证草稿已创建，请审核后过账。",
		Data: map[string]any{
			"record_type": "Journal Entry",
			"record":      name,
			"doc":         draft,
		},
		Type:     action.TypeDraft,
		Category: action.CategoryDraft,
	}, nil
}

// postJournalEntry 把凭证过账并更新科目余额，属于 POST 类动作。
func (s *Set) postJournalEntry(ctx context.Context, params map[string]any, user action.Identity) (*action.Result, error) {
	name := stringParam(params, "journal_entry")
	if name == "" {
		return missingParam("缺少必填参数 journal_entry"), nil
	}

	entry, err := s.backend.Get(ctx, "Journal Entry", name)
	if err != nil {
		return nil, err
	}
	if fieldString(entry, "status", "") != "Draft" {
		return action.Failure(action.ErrValidation, "该凭证已经过账"), nil
	}

	ok, err := s.records.HasRecordPermission(ctx, user, "Journal Entry", name, "submit")
	if err != nil {
		return nil, err
	}
	if !ok {
		return action.Failure(action.ErrPermissionDenied, "你没有过账该凭证的权限"), nil
	}

	amount := fieldFloat(entry, "amount")
	debitAccount := fieldString(entry, "debit_account", "")
	creditAccount := fieldString(entry, "credit_account", "")

	if debit, err := s.backend.Get(ctx, "Account", debitAccount); err == nil {
		_ = s.backend.Update(ctx, "Account", debitAccount, map[string]any{
			"balance": fieldFloat(debit, "balance") + amount,
		})
	}
	if credit, err := s.backend.Get(ctx, "Account", creditAccount); err == nil {
		_ = s.backend.Update(ctx, "Account", creditAccount, map[string]any{
			"balance": fieldFloat(credit, "balance") - amount,
		})
	}
	if err := s.backend.Update(ctx, "Journal Entry", name, map[string]any{"status": "Posted"}); err != nil {
		return nil, err
	}

	return &action.Result{
		Success: true,
		Message: "凭证已过账: " + name,
		Data: map[string]any{
			"record": name,
			"amount": amount,
		},
		Type:     action.TypeAction,
		Category: action.CategoryPost,
	}, nil
}
