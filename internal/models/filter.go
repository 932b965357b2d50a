package models

// Ограничения пагинации.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page параметры пагинации.
type Page struct {
	Limit  int
	Offset int
}

// Normalize приводит limit и offset к допустимым значениям.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// AdFilter параметры поиска объявлений. Пустые поля не участвуют в фильтре.
type AdFilter struct {
	Page
	Status     string
	CategoryID int64
	City       string
	MinPrice   *int64
	MaxPrice   *int64
	Query      string
	UserUID    string
}
