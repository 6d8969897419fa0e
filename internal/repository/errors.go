package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/pronia/pkg/database"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// notFound 将 gorm 的 ErrRecordNotFound 统一为 ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// degrade 表未创建时按空结果处理，其余错误原样返回
func degrade[T any](rows []T, err error) ([]T, error) {
	if database.IsMissingTable(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
