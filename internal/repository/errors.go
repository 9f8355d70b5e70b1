package repository

import "errors"

var (
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateVote 同一投票者重复投票
	ErrDuplicateVote = errors.New("duplicate vote")
)
