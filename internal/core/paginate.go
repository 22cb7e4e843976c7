package core

import (
	"context"
	"math"
)

// Page is one page of a paginated select.
type Page struct {
	Subset []Row `json:"subset"`
	Empty  bool  `json:"empty"`
	Count  int   `json:"count"`
	// Total is nil for simple pagination.
	Total       *int64 `json:"total"`
	CurrentPage int    `json:"current_page"`
	NextPage    int    `json:"next_page"`
	PrevPage    int    `json:"prev_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	// First and Last are the 1-based positions of the page rows.
	First int `json:"first"`
	Last  int `json:"last"`
}

type pageSource interface {
	rowReader
	Count(ctx context.Context, table string, criteria Criteria, opts *SelectOptions) (int64, error)
}

func paginate(ctx context.Context, src pageSource, table string, page int, criteria Criteria, opts *SelectOptions, size int, full bool) (*Page, error) {
	p := &Page{CurrentPage: max(page, 1), PerPage: size}
	if opts != nil && opts.Limit > 0 {
		p.PerPage = opts.Limit
	}
	if p.PerPage <= 0 {
		p.PerPage = 1
	}
	p.LastPage = p.CurrentPage + 1
	offset := (p.CurrentPage - 1) * p.PerPage

	if full {
		o := opts.Clone()
		o.Limit, o.Offset = 0, 0

		total, err := src.Count(ctx, table, criteria, o)
		if err != nil {
			return nil, err
		}
		p.Total = &total
		p.Empty = total == 0
		p.LastPage = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}

	p.Subset = []Row{}
	if p.Total == nil || *p.Total > 0 {
		o := opts.Clone()
		o.Limit, o.Offset = p.PerPage, offset

		rows, err := src.Select(ctx, table, criteria, o)
		if err != nil {
			return nil, err
		}
		p.Subset = rows
	}

	p.Count = len(p.Subset)
	p.NextPage = min(p.CurrentPage+1, p.LastPage)
	p.PrevPage = max(p.CurrentPage-1, 0)
	p.First = offset + 1
	p.Last = max(p.First, offset+p.Count)
	return p, nil
}
