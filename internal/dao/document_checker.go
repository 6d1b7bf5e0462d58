package dao

import (
	"context"
	"fmt"
	"regexp"

	"github.com/haierkeys/prompt-history/internal/domain"

	"gorm.io/gorm/clause"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// documentChecker 通过外部文档表检查文档是否存在
type documentChecker struct {
	dao    *Dao
	table  string
	column string
}

// NewDocumentChecker 创建文档存在性检查器
// table 为空时接受任意非空文档 ID
func NewDocumentChecker(dao *Dao, table, column string) (domain.DocumentChecker, error) {
	if table != "" {
		if column == "" {
			column = "id"
		}
		if !identifierPattern.MatchString(table) || !identifierPattern.MatchString(column) {
			return nil, fmt.Errorf("invalid document table %q or column %q", table, column)
		}
	}
	return &documentChecker{dao: dao, table: table, column: column}, nil
}

// Exists 判断文档是否存在
func (c *documentChecker) Exists(ctx context.Context, documentID string) (bool, error) {
	if documentID == "" {
		return false, nil
	}
	if c.table == "" {
		return true, nil
	}

	var count int64
	err := c.dao.conn(ctx).Table(c.table).
		Where(clause.Eq{Column: clause.Column{Name: c.column}, Value: documentID}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
