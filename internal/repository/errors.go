package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation 判断是否唯一约束冲突，兼容 gorm 翻译错误、postgres 与 sqlite 原始错误
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// UniqueViolationOn 判断冲突是否来自指定索引或列（列名形如 parcels.tracking_number）
func UniqueViolationOn(err error, index, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.EqualFold(pgErr.ConstraintName, index)
	}
	msg := strings.ToLower(err.Error())
	return (index != "" && strings.Contains(msg, strings.ToLower(index))) ||
		(column != "" && strings.Contains(msg, strings.ToLower(column)))
}

// ignoreNotFound 将记录不存在转为 (nil, nil)
func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
