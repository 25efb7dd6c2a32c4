package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Querier 由 *sql.DB 和 *sql.Tx 实现
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// RowScanner 由 *sql.Row 和 *sql.Rows 实现
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// SelectBuilder SQL查询构建器
type SelectBuilder struct {
	dialect    Dialect
	table      string
	selectCols []string
	whereConds []string
	orderBy    []string
	args       []interface{}
}

// NewSelectBuilder 创建新的SELECT查询构建器
func NewSelectBuilder(dialect Dialect, table string, cols ...string) *SelectBuilder {
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	return &SelectBuilder{
		dialect:    dialect,
		table:      table,
		selectCols: cols,
	}
}

// Where 添加WHERE条件，多个条件以 AND 连接
func (b *SelectBuilder) Where(condition string, args ...interface{}) *SelectBuilder {
	b.whereConds = append(b.whereConds, condition)
	b.args = append(b.args, args...)
	return b
}

// OrderBy 添加ORDER BY
func (b *SelectBuilder) OrderBy(cols ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, cols...)
	return b
}

// Args 获取参数
func (b *SelectBuilder) Args() []interface{} {
	return b.args
}

// Build 构建SQL语句
func (b *SelectBuilder) Build() string {
	var query strings.Builder

	query.WriteString("SELECT ")
	query.WriteString(strings.Join(b.selectCols, ", "))
	query.WriteString(" FROM " + b.table)

	if len(b.whereConds) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(b.whereConds, " AND "))
	}

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(b.orderBy, ", "))
	}

	return Rebind(b.dialect, query.String())
}

// Query 执行查询
func (b *SelectBuilder) Query(ctx context.Context, q Querier) (*sql.Rows, error) {
	return q.QueryContext(ctx, b.Build(), b.args...)
}

// QueryRow 执行单行查询
func (b *SelectBuilder) QueryRow(ctx context.Context, q Querier) *sql.Row {
	return q.QueryRowContext(ctx, b.Build(), b.args...)
}

// InsertBuilder INSERT构建器
type InsertBuilder struct {
	dialect Dialect
	table   string
	cols    []string
	args    []interface{}
}

// NewInsertBuilder 创建INSERT构建器
func NewInsertBuilder(dialect Dialect, table string) *InsertBuilder {
	return &InsertBuilder{dialect: dialect, table: table}
}

// Value 添加一列及其值
func (i *InsertBuilder) Value(col string, val interface{}) *InsertBuilder {
	i.cols = append(i.cols, col)
	i.args = append(i.args, val)
	return i
}

// Build 构建INSERT语句
func (i *InsertBuilder) Build() string {
	placeholders := make([]string, len(i.cols))
	for j := range placeholders {
		placeholders[j] = "?"
	}
	query := "INSERT INTO " + i.table +
		" (" + strings.Join(i.cols, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"
	return Rebind(i.dialect, query)
}

// Args 返回参数列表
func (i *InsertBuilder) Args() []interface{} {
	return i.args
}

// Exec 执行INSERT
func (i *InsertBuilder) Exec(ctx context.Context, q Querier) (sql.Result, error) {
	return q.ExecContext(ctx, i.Build(), i.args...)
}

// UpdateBuilder UPDATE构建器，SET 列按调用顺序输出
type UpdateBuilder struct {
	dialect    Dialect
	table      string
	sets       []string
	setArgs    []interface{}
	conditions []string
	whereArgs  []interface{}
}

// NewUpdateBuilder 创建UPDATE构建器
func NewUpdateBuilder(dialect Dialect, table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: dialect, table: table}
}

// Set 设置更新列
func (u *UpdateBuilder) Set(col string, val interface{}) *UpdateBuilder {
	u.sets = append(u.sets, col+" = ?")
	u.setArgs = append(u.setArgs, val)
	return u
}

// SetExpr 以表达式更新列，例如 "download_count + 1" 或 "NULL"
func (u *UpdateBuilder) SetExpr(col, expr string, args ...interface{}) *UpdateBuilder {
	u.sets = append(u.sets, col+" = "+expr)
	u.setArgs = append(u.setArgs, args...)
	return u
}

// Where 设置WHERE条件
func (u *UpdateBuilder) Where(condition string, args ...interface{}) *UpdateBuilder {
	u.conditions = append(u.conditions, condition)
	u.whereArgs = append(u.whereArgs, args...)
	return u
}

// Build 构建UPDATE语句
func (u *UpdateBuilder) Build() string {
	var query strings.Builder

	query.WriteString("UPDATE " + u.table)
	query.WriteString(" SET " + strings.Join(u.sets, ", "))

	if len(u.conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(u.conditions, " AND "))
	}

	return Rebind(u.dialect, query.String())
}

// Args 返回参数列表，SET 参数在前
func (u *UpdateBuilder) Args() []interface{} {
	args := make([]interface{}, 0, len(u.setArgs)+len(u.whereArgs))
	args = append(args, u.setArgs...)
	return append(args, u.whereArgs...)
}

// Exec 执行UPDATE
func (u *UpdateBuilder) Exec(ctx context.Context, q Querier) (sql.Result, error) {
	if len(u.sets) == 0 {
		return nil, fmt.Errorf("update %s: no columns to set", u.table)
	}
	return q.ExecContext(ctx, u.Build(), u.Args()...)
}

// DeleteBuilder DELETE构建器
type DeleteBuilder struct {
	dialect    Dialect
	table      string
	conditions []string
	args       []interface{}
}

// NewDeleteBuilder 创建DELETE构建器
func NewDeleteBuilder(dialect Dialect, table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: dialect, table: table}
}

// Where 设置WHERE条件
func (d *DeleteBuilder) Where(condition string, args ...interface{}) *DeleteBuilder {
	d.conditions = append(d.conditions, condition)
	d.args = append(d.args, args...)
	return d
}

// Build 构建DELETE语句
func (d *DeleteBuilder) Build() string {
	query := "DELETE FROM " + d.table
	if len(d.conditions) > 0 {
		query += " WHERE " + strings.Join(d.conditions, " AND ")
	}
	return Rebind(d.dialect, query)
}

// Args 返回参数列表
func (d *DeleteBuilder) Args() []interface{} {
	return d.args
}

// Exec 执行DELETE
func (d *DeleteBuilder) Exec(ctx context.Context, q Querier) (sql.Result, error) {
	return q.ExecContext(ctx, d.Build(), d.args...)
}
