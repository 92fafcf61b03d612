package pagination

const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 100000
)

// Query 分页参数，page 从 1 开始。
type Query struct {
	Page  int `form:"page" binding:"omitempty,min=1,max=100000"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize 填充默认值并裁剪越界值。
func (q Query) Normalize() Query {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q Query) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Limit
}

// Meta 随列表一起返回的分页信息。
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewMeta(q Query, total int64) Meta {
	q = q.Normalize()
	pages := total / int64(q.Limit)
	if total%int64(q.Limit) != 0 {
		pages++
	}
	return Meta{Page: q.Page, Limit: q.Limit, Total: total, Pages: pages}
}
