package services

import "errors"

// 错误分类哨兵，处理层用errors.Is映射到对应的HTTP状态码；
// 未命中的错误一律按存储/内部故障处理
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)
