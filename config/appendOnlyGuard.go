package config

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrAppendOnlyTable = errors.New("table is append-only")

// AppendOnlyGuardPlugin rejects UPDATE and DELETE statements against the
// configured tables, including bulk statements that never load a model and
// therefore skip the per-model BeforeUpdate/BeforeDelete hooks.
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL.
type AppendOnlyGuardPlugin struct {
	tables map[string]bool
}

func NewAppendOnlyGuardPlugin(tables ...string) *AppendOnlyGuardPlugin {
	p := &AppendOnlyGuardPlugin{tables: make(map[string]bool, len(tables))}
	for _, t := range tables {
		p.tables[t] = true
	}
	return p
}

func (p *AppendOnlyGuardPlugin) Name() string { return "append_only_guard" }

func (p *AppendOnlyGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("append_only_guard:update", p.guard); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("append_only_guard:delete", p.guard); err != nil {
		return err
	}
	return nil
}

func (p *AppendOnlyGuardPlugin) guard(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if p.tables[table] {
		_ = db.AddError(fmt.Errorf("%w: %s", ErrAppendOnlyTable, table))
	}
}
