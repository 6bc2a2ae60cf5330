package service

import "errors"

// 业务哨兵错误。台账与解析错误原样透传给调用方，不做本地兜底：
// 静默替换默认价格或数量会污染财务数据。
var (
	// ErrCycleDetected 组合商品构成边成环（插入前置检查或解析期兜底命中）
	ErrCycleDetected = errors.New("component cycle detected")
	// ErrInvalidQuantity 数量或金额非法
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidInterval 价格生效区间违反历史单调性
	ErrInvalidInterval = errors.New("invalid effective interval")
	// ErrInvalidState 实体当前状态不允许该操作
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidTransition 状态机不允许该跳转
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInsufficientStock 可用库存不足，预占整体失败（可重试）
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotFound 引用的实体不存在
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTier 未知的定价档位
	ErrInvalidTier = errors.New("invalid price tier")
)
