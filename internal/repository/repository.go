// Package repository PostgreSQL 数据访问层，纯 SQL，不用 ORM
package repository

import "errors"

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")
