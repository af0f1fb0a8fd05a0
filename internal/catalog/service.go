package catalog

import (
	"context"
	"fmt"
	"strconv"

	"log/slog"

	"github.com/velvetcask/velvetcask/internal/audit"
	"github.com/velvetcask/velvetcask/internal/authz"
	"github.com/velvetcask/velvetcask/internal/platform/httpx"
)

// AuditRecorder appends one record per privileged mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (string, error)
}

// Actor identifies the caller of a catalog operation together with the
// request metadata that ends up on the audit trail.
type Actor struct {
	Session   authz.Session
	IP        string
	UserAgent string
}

// Service applies catalog mutations: authorize, mutate, then record.
// A mutation and its audit record form one logical unit; the record is
// always attempted once the mutation committed, and a failed record is
// escalated to the caller rather than swallowed.
type Service struct {
	repo     Repository
	recorder AuditRecorder
	logger   *slog.Logger
}

// NewService constructs the catalog service.
func NewService(repo Repository, recorder AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// ListProducts returns products matching the filters.
func (s *Service) ListProducts(ctx context.Context, actor Actor, f ListFilters) ([]Product, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceProduct, authz.ActionRead) {
		return nil, httpx.ErrForbidden
	}
	return s.repo.ListProducts(ctx, f)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, actor Actor, id int64) (Product, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceProduct, authz.ActionRead) {
		return Product{}, httpx.ErrForbidden
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct inserts a product and records the creation.
func (s *Service) CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (Product, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceProduct, authz.ActionCreate) {
		return Product{}, httpx.ErrForbidden
	}
	if err := req.validateFields(); err != nil {
		return Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, req.toProduct())
	if err != nil {
		return Product{}, err
	}
	if err := s.record(ctx, actor, audit.ActionCreateProduct, authz.ResourceProduct, created.ID,
		audit.Diff(nil, snapshot(created))); err != nil {
		return created, err
	}
	return created, nil
}

// UpdateProduct applies changes to a product and records the
// field-level diff between the before and after snapshots.
func (s *Service) UpdateProduct(ctx context.Context, actor Actor, id int64, req ProductRequest) (Product, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceProduct, authz.ActionUpdate) {
		return Product{}, httpx.ErrForbidden
	}
	if err := req.validateFields(); err != nil {
		return Product{}, err
	}
	before, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	after, err := s.repo.UpdateProduct(ctx, id, req.toProduct())
	if err != nil {
		return Product{}, err
	}
	if err := s.record(ctx, actor, audit.ActionUpdateProduct, authz.ResourceProduct, id,
		audit.Diff(snapshot(before), snapshot(after))); err != nil {
		return after, err
	}
	return after, nil
}

// DeleteProduct removes a product and records what was removed.
func (s *Service) DeleteProduct(ctx context.Context, actor Actor, id int64) error {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceProduct, authz.ActionDelete) {
		return httpx.ErrForbidden
	}
	before, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	return s.record(ctx, actor, audit.ActionDeleteProduct, authz.ResourceProduct, id,
		audit.Diff(snapshot(before), nil))
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context, actor Actor) ([]Category, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceCategory, authz.ActionRead) {
		return nil, httpx.ErrForbidden
	}
	return s.repo.ListCategories(ctx)
}

// CreateCategory inserts a category and records the creation.
func (s *Service) CreateCategory(ctx context.Context, actor Actor, req CategoryRequest) (Category, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceCategory, authz.ActionCreate) {
		return Category{}, httpx.ErrForbidden
	}
	if err := req.validateFields(); err != nil {
		return Category{}, err
	}
	created, err := s.repo.CreateCategory(ctx, Category{Name: req.Name, Description: req.Description})
	if err != nil {
		return Category{}, err
	}
	if err := s.record(ctx, actor, audit.ActionCreateCategory, authz.ResourceCategory, created.ID,
		audit.Diff(nil, categorySnapshot(created))); err != nil {
		return created, err
	}
	return created, nil
}

// UpdateCategory applies changes to a category.
func (s *Service) UpdateCategory(ctx context.Context, actor Actor, id int64, req CategoryRequest) (Category, error) {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceCategory, authz.ActionUpdate) {
		return Category{}, httpx.ErrForbidden
	}
	if err := req.validateFields(); err != nil {
		return Category{}, err
	}
	before, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	after, err := s.repo.UpdateCategory(ctx, id, Category{Name: req.Name, Description: req.Description})
	if err != nil {
		return Category{}, err
	}
	if err := s.record(ctx, actor, audit.ActionUpdateCategory, authz.ResourceCategory, id,
		audit.Diff(categorySnapshot(before), categorySnapshot(after))); err != nil {
		return after, err
	}
	return after, nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, actor Actor, id int64) error {
	if !authz.CanPerformAction(actor.Session.Role, authz.ResourceCategory, authz.ActionDelete) {
		return httpx.ErrForbidden
	}
	before, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	return s.record(ctx, actor, audit.ActionDeleteCategory, authz.ResourceCategory, id,
		audit.Diff(categorySnapshot(before), nil))
}

func (s *Service) record(ctx context.Context, actor Actor, action string, resource authz.Resource, id int64, changes map[string]audit.Change) error {
	_, err := s.recorder.Record(ctx, audit.Entry{
		UserID:     actor.Session.UserID,
		UserName:   actor.Session.DisplayName,
		Action:     action,
		Resource:   string(resource),
		ResourceID: strconv.FormatInt(id, 10),
		Changes:    changes,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
	if err != nil {
		// Mutation already committed; surface the gap loudly.
		s.logger.Error("audit trail incomplete",
			slog.String("action", action),
			slog.Int64("resource_id", id),
			slog.Any("error", err))
		return fmt.Errorf("catalog: %s committed but not recorded: %w", action, err)
	}
	return nil
}
