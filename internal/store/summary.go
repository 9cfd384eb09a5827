package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

// SummaryFilter narrows GetBaseSummary. Zero values are ignored.
type SummaryFilter struct {
	AssetType string
	From      *time.Time
	To        *time.Time
}

// bound renders a time restriction on column as an AND clause.
type bound func(column string) (string, []any)

// within bounds column to the optional closed period [from, to].
func within(from, to *time.Time) bound {
	return func(column string) (string, []any) {
		var clause string
		var args []any
		if from != nil {
			clause += ` AND ` + column + ` >= ?`
			args = append(args, *from)
		}
		if to != nil {
			clause += ` AND ` + column + ` <= ?`
			args = append(args, *to)
		}
		return clause, args
	}
}

// after bounds column to instants strictly later than t.
func after(t time.Time) bound {
	return func(column string) (string, []any) {
		return ` AND ` + column + ` > ?`, []any{t}
	}
}

// ofType renders the optional asset type restriction on column.
func ofType(column, assetType string) (string, []any) {
	if assetType == "" {
		return "", nil
	}
	return ` AND ` + column + ` = ?`, []any{assetType}
}

// GetBaseSummary computes holdings, balances and movement for a base.
// Holdings are current; movement counts only events inside the optional
// period. Balances are reconstructed from current holdings by unwinding the
// movement after each end of the period.
func GetBaseSummary(ctx context.Context, db dbx.DBTX, baseID int64, f SummaryFilter) (*model.BaseSummary, error) {
	s := &model.BaseSummary{
		BaseID:         baseID,
		AssetType:      f.AssetType,
		From:           f.From,
		To:             f.To,
		AssetsByStatus: map[string]int{},
		AssetsByType:   map[string]int{},
		PurchasedValue: decimal.Zero,
	}

	typeClause, typeArgs := ofType("type", f.AssetType)
	rows, err := db.QueryContext(ctx,
		`SELECT status, type, COUNT(*) FROM assets WHERE base_id = ?`+typeClause+` GROUP BY status, type`,
		append([]any{baseID}, typeArgs...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}
	inService := 0
	for rows.Next() {
		var status, typ string
		var n int
		if err := rows.Scan(&status, &typ, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning asset counts: %w", err)
		}
		s.AssetsByStatus[status] += n
		s.AssetsByType[typ] += n
		if model.InService(status) {
			inService += n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}

	period, err := movementByType(ctx, db, baseID, f.AssetType, within(f.From, f.To))
	if err != nil {
		return nil, err
	}
	s.MovementByType = period
	total := sumMovement(period)
	s.PurchasedUnits = total.Purchased
	s.PurchasedValue = total.PurchasedValue
	s.TransferredIn = total.TransferredIn
	s.TransferredOut = total.TransferredOut
	s.RetiredAssets = total.Retired
	s.NetMovement = total.Net()

	// Everything from the start of the period on, or everything when the
	// period is open, is unwound to reach the opening balance.
	since, err := movementByType(ctx, db, baseID, f.AssetType, within(f.From, nil))
	if err != nil {
		return nil, err
	}
	sinceTotal := sumMovement(since)
	s.OpeningBalance = inService - sinceTotal.Net() + sinceTotal.Retired

	s.ClosingBalance = inService
	if f.To != nil {
		later, err := movementByType(ctx, db, baseID, f.AssetType, after(*f.To))
		if err != nil {
			return nil, err
		}
		laterTotal := sumMovement(later)
		s.ClosingBalance = inService - laterTotal.Net() + laterTotal.Retired
	}

	typeClause, typeArgs = ofType("a.type", f.AssetType)
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments s JOIN assets a ON a.id = s.asset_id
		 WHERE s.base_id = ? AND s.status = 'active'`+typeClause,
		append([]any{baseID}, typeArgs...)...,
	).Scan(&s.ActiveAssignments); err != nil {
		return nil, fmt.Errorf("counting active assignments: %w", err)
	}

	clause, args := within(f.From, f.To)("s.expended_at")
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments s JOIN assets a ON a.id = s.asset_id
		 WHERE s.base_id = ? AND s.status = 'expended'`+typeClause+clause,
		append(append([]any{baseID}, typeArgs...), args...)...,
	).Scan(&s.ExpendedAssets); err != nil {
		return nil, fmt.Errorf("counting expended assets: %w", err)
	}

	return s, nil
}

// movementByType totals the purchases received, transfers completed and
// assets retired at a base inside b, per asset type.
func movementByType(ctx context.Context, db dbx.DBTX, baseID int64, assetType string, b bound) (map[string]model.Movement, error) {
	out := map[string]model.Movement{}

	typeClause, typeArgs := ofType("i.asset_type", assetType)
	clause, args := b("p.delivery_date")
	rows, err := db.QueryContext(ctx,
		`SELECT i.asset_type, i.quantity, i.unit_cost FROM purchase_items i
		 JOIN purchases p ON p.id = i.purchase_id
		 WHERE p.base_id = ? AND p.status = 'received'`+typeClause+clause,
		append(append([]any{baseID}, typeArgs...), args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("summing purchases: %w", err)
	}
	for rows.Next() {
		var typ string
		var qty int
		var cost decimal.Decimal
		if err := rows.Scan(&typ, &qty, &cost); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning purchase line: %w", err)
		}
		m := out[typ]
		m.Purchased += qty
		m.PurchasedValue = m.PurchasedValue.Add(cost.Mul(decimal.NewFromInt(int64(qty))))
		out[typ] = m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summing purchases: %w", err)
	}

	typeClause, typeArgs = ofType("l.asset_type", assetType)
	clause, args = b("t.actual_arrival")
	movement := `SELECT l.asset_type, SUM(l.quantity) FROM transfer_lines l
		JOIN transfers t ON t.id = l.transfer_id
		WHERE t.status = 'completed' AND `
	for _, side := range []struct {
		column string
		add    func(m *model.Movement, n int)
	}{
		{"t.to_base_id", func(m *model.Movement, n int) { m.TransferredIn += n }},
		{"t.from_base_id", func(m *model.Movement, n int) { m.TransferredOut += n }},
	} {
		err := countByType(ctx, db, out, side.add,
			movement+side.column+` = ?`+typeClause+clause+` GROUP BY l.asset_type`,
			append(append([]any{baseID}, typeArgs...), args...)...)
		if err != nil {
			return nil, fmt.Errorf("summing transfers: %w", err)
		}
	}

	typeClause, typeArgs = ofType("a.type", assetType)
	clause, args = b("a.retired_at")
	err = countByType(ctx, db, out, func(m *model.Movement, n int) { m.Retired += n },
		`SELECT a.type, COUNT(*) FROM assets a
		 WHERE a.base_id = ? AND a.retired_at IS NOT NULL`+typeClause+clause+` GROUP BY a.type`,
		append(append([]any{baseID}, typeArgs...), args...)...)
	if err != nil {
		return nil, fmt.Errorf("counting retired assets: %w", err)
	}

	return out, nil
}

// countByType runs a (type, count) query and folds each row into out.
func countByType(ctx context.Context, db dbx.DBTX, out map[string]model.Movement,
	add func(m *model.Movement, n int), query string, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return err
		}
		m := out[typ]
		add(&m, n)
		out[typ] = m
	}
	return rows.Err()
}

func sumMovement(byType map[string]model.Movement) model.Movement {
	total := model.Movement{PurchasedValue: decimal.Zero}
	for _, m := range byType {
		total = total.Add(m)
	}
	return total
}
