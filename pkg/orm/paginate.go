// Package orm holds query helpers shared by the repositories.
package orm

import (
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type Pagination struct {
	Page     int   `json:"current_page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// NewPagination clamps page to ≥1 and perPage to [1, MaxPerPage].
func NewPagination(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }

// Paginate counts q, then loads one page of it into dest.
// q must already carry Model and any Where/Order clauses.
func Paginate(q *gorm.DB, p Pagination, dest any) (Pagination, error) {
	if err := q.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return p, err
	}
	p.LastPage = int(math.Max(1, math.Ceil(float64(p.Total)/float64(p.PerPage))))

	err := q.Session(&gorm.Session{}).Offset(p.Offset()).Limit(p.PerPage).Find(dest).Error
	return p, err
}
