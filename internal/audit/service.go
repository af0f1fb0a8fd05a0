package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Filters narrows timeline and export queries.
type Filters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Resource string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// TimelineResult bundles timeline rows with paging information.
type TimelineResult struct {
	Records []Record
	Paging  PagingInfo
}

// Repository is the read contract over the audit store.
type Repository interface {
	TimelinePage(ctx context.Context, f Filters, limit, offset int) ([]Record, error)
	TimelineAll(ctx context.Context, f Filters) ([]Record, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService constructs a timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page of the audit trail. It requests one row
// beyond the page size to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters Filters) (TimelineResult, error) {
	if s == nil || s.repo == nil {
		return TimelineResult{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	records, err := s.repo.TimelinePage(ctx, normalizeFilters(filters), pageSize+1, offset)
	if err != nil {
		return TimelineResult{}, err
	}
	hasNext := len(records) > pageSize
	if hasNext {
		records = records[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return TimelineResult{Records: records, Paging: paging}, nil
}

// Export fetches every matching record without paging.
func (s *Service) Export(ctx context.Context, filters Filters) ([]Record, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.TimelineAll(ctx, normalizeFilters(filters))
}

func normalizeFilters(f Filters) Filters {
	f.Actor = strings.TrimSpace(f.Actor)
	f.Resource = strings.TrimSpace(f.Resource)
	f.Action = strings.TrimSpace(f.Action)
	return f
}
