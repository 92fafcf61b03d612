package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind 错误分类，决定 HTTP 映射与重试策略。
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation 入参非法，直接返回给调用方，不重试。
	KindValidation
	// KindNotFound 资源不存在或不属于调用方。
	KindNotFound
	// KindStateConflict 状态冲突：非法流转、支付超时、库存不足等。
	KindStateConflict
	// KindTransactionAbort 事务未能完成，已整体回滚，调用方可整体重试。
	KindTransactionAbort
	// KindBackgroundTask 后台任务（超时清理、通知）失败，只记录日志。
	KindBackgroundTask
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindTransactionAbort:
		return "transaction_abort"
	case KindBackgroundTask:
		return "background_task"
	default:
		return "unknown"
	}
}

const (
	CodeValidation        = "validation_error"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeEmptyCart         = "empty_cart"
	CodeInsufficientStock = "insufficient_stock"
	CodeOrderNotFound     = "order_not_found"
	CodeProductNotFound   = "product_not_found"
	CodeCartNotFound      = "cart_not_found"
	CodeUserNotFound      = "user_not_found"
	CodeInvalidState      = "invalid_state"
	CodeDeadlineExpired   = "deadline_expired"
	CodeIllegalTransition = "illegal_transition"
	CodeConflict          = "conflict"
	CodeTransactionAbort  = "transaction_aborted"
	CodeBackgroundTask    = "background_task_failed"
)

// Error carries a kind, a stable code and the structured context a caller needs to react.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinels like ErrEmptyCart work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation        = &Error{Kind: KindValidation, Code: CodeValidation}
	ErrUnauthorized      = &Error{Kind: KindValidation, Code: CodeUnauthorized}
	ErrForbidden         = &Error{Kind: KindValidation, Code: CodeForbidden}
	ErrEmptyCart         = &Error{Kind: KindStateConflict, Code: CodeEmptyCart}
	ErrInsufficientStock = &Error{Kind: KindStateConflict, Code: CodeInsufficientStock}
	ErrOrderNotFound     = &Error{Kind: KindNotFound, Code: CodeOrderNotFound}
	ErrProductNotFound   = &Error{Kind: KindNotFound, Code: CodeProductNotFound}
	ErrCartNotFound      = &Error{Kind: KindNotFound, Code: CodeCartNotFound}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Code: CodeUserNotFound}
	ErrInvalidState      = &Error{Kind: KindStateConflict, Code: CodeInvalidState}
	ErrDeadlineExpired   = &Error{Kind: KindStateConflict, Code: CodeDeadlineExpired}
	ErrIllegalTransition = &Error{Kind: KindStateConflict, Code: CodeIllegalTransition}
	ErrConflict          = &Error{Kind: KindStateConflict, Code: CodeConflict}
	ErrTransactionAbort  = &Error{Kind: KindTransactionAbort, Code: CodeTransactionAbort}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeForbidden, Message: msg}
}

func EmptyCart() *Error {
	return &Error{Kind: KindStateConflict, Code: CodeEmptyCart, Message: "cart is empty"}
}

// InsufficientStock 报告缺货商品及缺口，调用方据此调整购物车。
func InsufficientStock(productID uint, productName string, available, requested int64) *Error {
	return &Error{
		Kind:    KindStateConflict,
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d", productName, available, requested),
		Fields: map[string]any{
			"product_id":   productID,
			"product_name": productName,
			"available":    available,
			"requested":    requested,
			"shortfall":    requested - available,
		},
	}
}

func OrderNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeOrderNotFound, Message: "order not found"}
}

func ProductNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeProductNotFound, Message: "product not found"}
}

func CartNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeCartNotFound, Message: "cart not found"}
}

func UserNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeUserNotFound, Message: "user not found"}
}

func InvalidState(current string) *Error {
	return &Error{
		Kind:    KindStateConflict,
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("order is already %s", current),
		Fields:  map[string]any{"current_status": current},
	}
}

func DeadlineExpired(deadline time.Time) *Error {
	return &Error{
		Kind:    KindStateConflict,
		Code:    CodeDeadlineExpired,
		Message: "payment deadline has passed",
		Fields:  map[string]any{"deadline": deadline.UTC().Format(time.RFC3339)},
	}
}

func IllegalTransition(from, to string) *Error {
	return &Error{
		Kind:    KindStateConflict,
		Code:    CodeIllegalTransition,
		Message: fmt.Sprintf("cannot move order from %s to %s", from, to),
		Fields:  map[string]any{"current_status": from, "target_status": to},
	}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindStateConflict, Code: CodeConflict, Message: msg}
}

// Abort 包装存储层错误：整个操作已回滚，没有部分写入。
func Abort(err error) *Error {
	return &Error{Kind: KindTransactionAbort, Code: CodeTransactionAbort, Message: "operation aborted", Err: err}
}

// Background 标记后台任务错误，仅用于日志。
func Background(task string, err error) *Error {
	return &Error{
		Kind:    KindBackgroundTask,
		Code:    CodeBackgroundTask,
		Message: task + " failed",
		Fields:  map[string]any{"task": task},
		Err:     err,
	}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// WrapTx 保留已分类的错误，其余统一视为事务中止。
func WrapTx(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Abort(err)
}
