// Package request разбирает общие параметры запросов: пагинацию, фильтры
// объявлений и идентификаторы из пути.
package request

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// ErrBadParam некорректный параметр запроса.
var ErrBadParam = errors.New("invalid query parameter")

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadParam, name)
	}
	return v, nil
}

func int64Param(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%w: %s", ErrBadParam, name)
	}
	return &v, nil
}

// Page читает limit и offset. Значения приводятся к допустимым.
func Page(r *http.Request) (models.Page, error) {
	limit, err := intParam(r, "limit", models.DefaultLimit)
	if err != nil {
		return models.Page{}, err
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		return models.Page{}, err
	}
	return models.Page{Limit: limit, Offset: offset}.Normalize(), nil
}

// AdFilter читает параметры поиска объявлений.
func AdFilter(r *http.Request) (models.AdFilter, error) {
	page, err := Page(r)
	if err != nil {
		return models.AdFilter{}, err
	}
	q := r.URL.Query()
	f := models.AdFilter{
		Page:   page,
		Status: q.Get("status"),
		City:   strings.TrimSpace(q.Get("city")),
		Query:  strings.TrimSpace(q.Get("q")),
	}
	switch f.Status {
	case "", models.AdPending, models.AdApproved, models.AdRejected, models.AdExpired:
	default:
		return models.AdFilter{}, fmt.Errorf("%w: status", ErrBadParam)
	}
	category, err := int64Param(r, "category")
	if err != nil {
		return models.AdFilter{}, err
	}
	if category != nil {
		f.CategoryID = *category
	}
	if f.MinPrice, err = int64Param(r, "min_price"); err != nil {
		return models.AdFilter{}, err
	}
	if f.MaxPrice, err = int64Param(r, "max_price"); err != nil {
		return models.AdFilter{}, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return models.AdFilter{}, fmt.Errorf("%w: min_price is greater than max_price", ErrBadParam)
	}
	return f, nil
}

// ID читает положительный числовой идентификатор из пути.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadParam, name)
	}
	return id, nil
}

// UID читает uuid пользователя из пути.
func UID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadParam, name)
	}
	return raw, nil
}
