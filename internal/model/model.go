// Package model 定义数据模型
package model

import (
	"gorm.io/gorm"
)

// Models 返回需要自动迁移的全部模型
func Models() []any {
	return []any{&Revision{}, &Branch{}}
}

// AutoMigrate 按模型名称自动迁移表结构，key 为空时迁移全部模型
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {

	case "Revision":
		return db.AutoMigrate(&Revision{})

	case "Branch":
		return db.AutoMigrate(&Branch{})

	case "":
		return db.AutoMigrate(Models()...)
	}
	return nil
}
