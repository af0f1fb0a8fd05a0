package catalog

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/velvetcask/velvetcask/internal/audit"
	"github.com/velvetcask/velvetcask/internal/authz"
	"github.com/velvetcask/velvetcask/internal/platform/httpx"
)

type memoryCatalogRepo struct {
	products   map[int64]Product
	categories map[int64]Category
	nextID     int64
	deleted    []int64
}

func newMemoryCatalogRepo() *memoryCatalogRepo {
	return &memoryCatalogRepo{
		products:   make(map[int64]Product),
		categories: make(map[int64]Category),
	}
}

func (r *memoryCatalogRepo) ListProducts(context.Context, ListFilters) ([]Product, error) {
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryCatalogRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, httpx.ErrNotFound
	}
	return p, nil
}

func (r *memoryCatalogRepo) CreateProduct(_ context.Context, p Product) (Product, error) {
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryCatalogRepo) UpdateProduct(_ context.Context, id int64, p Product) (Product, error) {
	existing, ok := r.products[id]
	if !ok {
		return Product{}, httpx.ErrNotFound
	}
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	r.products[id] = p
	return p, nil
}

func (r *memoryCatalogRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.products, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *memoryCatalogRepo) ListCategories(context.Context) ([]Category, error) {
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryCatalogRepo) GetCategory(_ context.Context, id int64) (Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, httpx.ErrNotFound
	}
	return c, nil
}

func (r *memoryCatalogRepo) CreateCategory(_ context.Context, c Category) (Category, error) {
	r.nextID++
	c.ID = r.nextID
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryCatalogRepo) UpdateCategory(_ context.Context, id int64, c Category) (Category, error) {
	if _, ok := r.categories[id]; !ok {
		return Category{}, httpx.ErrNotFound
	}
	c.ID = id
	r.categories[id] = c
	return c, nil
}

func (r *memoryCatalogRepo) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func managerActor() Actor {
	return Actor{
		Session:   authz.Session{UserID: "mgr-1", DisplayName: "Nina Oak", Role: authz.RoleManager},
		IP:        "10.0.0.8",
		UserAgent: "velvet-admin/1.0",
	}
}

func superAdminActor() Actor {
	return Actor{
		Session: authz.Session{UserID: "adm-1", DisplayName: "Root Cask", Role: authz.RoleSuperAdmin},
		IP:      "10.0.0.1",
	}
}

func highlandReserve() ProductRequest {
	return ProductRequest{
		SKU:           "VC-HR12",
		Name:          "Highland Reserve 12Y",
		Distillery:    "Glen Velvet",
		Region:        "Highland",
		CategoryID:    1,
		ABV:           43,
		VolumeML:      700,
		Price:         49.99,
		StockQuantity: 24,
		IsActive:      true,
	}
}

func TestCreateProductRecordsCreationDiff(t *testing.T) {
	repo := newMemoryCatalogRepo()
	sink := audit.NewMemorySink()
	svc := NewService(repo, audit.NewRecorder(sink, discardLogger()), discardLogger())

	created, err := svc.CreateProduct(context.Background(), managerActor(), highlandReserve())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created product has no ID")
	}
	records := sink.Records()
	if len(records) != 1 {
		t.Fatalf("sink holds %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Action != audit.ActionCreateProduct || rec.Resource != "product" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.UserID != "mgr-1" || rec.UserName != "Nina Oak" || rec.IPAddress != "10.0.0.8" {
		t.Fatalf("actor metadata = %+v", rec)
	}
	skuChange, ok := rec.Changes["sku"]
	if !ok || skuChange.From != nil || skuChange.To != "VC-HR12" {
		t.Fatalf("sku change = %+v", rec.Changes)
	}
	if len(rec.Changes) != 10 {
		t.Fatalf("creation diff covers %d fields, want every snapshot key", len(rec.Changes))
	}
}

func TestUpdateProductRecordsFieldDiff(t *testing.T) {
	repo := newMemoryCatalogRepo()
	sink := audit.NewMemorySink()
	svc := NewService(repo, audit.NewRecorder(sink, discardLogger()), discardLogger())

	created, err := svc.CreateProduct(context.Background(), managerActor(), highlandReserve())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	update := highlandReserve()
	update.Price = 54.99
	if _, err := svc.UpdateProduct(context.Background(), managerActor(), created.ID, update); err != nil {
		t.Fatalf("update: %v", err)
	}

	records := sink.Records()
	if len(records) != 2 {
		t.Fatalf("sink holds %d records, want 2", len(records))
	}
	rec := records[1]
	if rec.Action != audit.ActionUpdateProduct {
		t.Fatalf("action = %q", rec.Action)
	}
	if len(rec.Changes) != 1 {
		t.Fatalf("update diff = %v, want only price", rec.Changes)
	}
	price := rec.Changes["price"]
	if price.From != 49.99 || price.To != 54.99 {
		t.Fatalf("price change = %+v", price)
	}
}

func TestDeleteProductRequiresSuperAdmin(t *testing.T) {
	repo := newMemoryCatalogRepo()
	sink := audit.NewMemorySink()
	svc := NewService(repo, audit.NewRecorder(sink, discardLogger()), discardLogger())

	created, err := svc.CreateProduct(context.Background(), managerActor(), highlandReserve())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteProduct(context.Background(), managerActor(), created.ID); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("manager delete error = %v, want forbidden", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("denied delete must not touch the repository")
	}
	if sink.Len() != 1 {
		t.Fatalf("denied delete must not be recorded, sink holds %d", sink.Len())
	}

	if err := svc.DeleteProduct(context.Background(), superAdminActor(), created.ID); err != nil {
		t.Fatalf("super admin delete: %v", err)
	}
	records := sink.Records()
	rec := records[len(records)-1]
	if rec.Action != audit.ActionDeleteProduct {
		t.Fatalf("action = %q", rec.Action)
	}
	name := rec.Changes["name"]
	if name.From != "Highland Reserve 12Y" || name.To != nil {
		t.Fatalf("deletion diff = %+v", rec.Changes)
	}
}

func TestMutationsDeniedForReadOnlyRoles(t *testing.T) {
	repo := newMemoryCatalogRepo()
	sink := audit.NewMemorySink()
	svc := NewService(repo, audit.NewRecorder(sink, discardLogger()), discardLogger())

	auditor := Actor{Session: authz.Session{UserID: "aud-1", Role: authz.RoleAuditor}}
	if _, err := svc.CreateProduct(context.Background(), auditor, highlandReserve()); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("auditor create error = %v", err)
	}
	staff := Actor{Session: authz.Session{UserID: "stf-1", Role: authz.RoleStaff}}
	if _, err := svc.CreateCategory(context.Background(), staff, CategoryRequest{Name: "Islay"}); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("staff category create error = %v", err)
	}
	if len(repo.products) != 0 || len(repo.categories) != 0 {
		t.Fatal("denied mutations must not write")
	}
	if sink.Len() != 0 {
		t.Fatal("denied mutations must not be recorded")
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryCatalogRepo(), audit.NewRecorder(audit.NewMemorySink(), discardLogger()), discardLogger())

	req := highlandReserve()
	req.SKU = ""
	if _, err := svc.CreateProduct(context.Background(), managerActor(), req); !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("missing SKU error = %v", err)
	}

	req = highlandReserve()
	req.ABV = 120
	if _, err := svc.CreateProduct(context.Background(), managerActor(), req); !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("out-of-range ABV error = %v", err)
	}
}

func TestUpdateProductSinkFailureEscalates(t *testing.T) {
	repo := newMemoryCatalogRepo()
	okSink := audit.NewMemorySink()
	svc := NewService(repo, audit.NewRecorder(okSink, discardLogger()), discardLogger())

	created, err := svc.CreateProduct(context.Background(), managerActor(), highlandReserve())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Swap in a recorder whose sink always fails.
	svc = NewService(repo, audit.NewRecorder(downSink{}, discardLogger()), discardLogger())
	update := highlandReserve()
	update.StockQuantity = 12
	after, err := svc.UpdateProduct(context.Background(), managerActor(), created.ID, update)
	if err == nil {
		t.Fatal("sink failure must escalate")
	}
	if !audit.IsSinkFailure(err) {
		t.Fatalf("error %v is not a sink failure", err)
	}
	// The mutation itself committed.
	if after.StockQuantity != 12 {
		t.Fatalf("returned product = %+v", after)
	}
	stored, getErr := repo.GetProduct(context.Background(), created.ID)
	if getErr != nil || stored.StockQuantity != 12 {
		t.Fatalf("stored product = %+v, err %v", stored, getErr)
	}
}

type downSink struct{}

func (downSink) Append(context.Context, audit.Record) error {
	return errors.New("sink offline")
}

func TestCategoryLifecycleRecordsTrail(t *testing.T) {
	repo := newMemoryCatalogRepo()
	sink := audit.NewMemorySink()
	svc := NewService(repo, audit.NewRecorder(sink, discardLogger()), discardLogger())

	created, err := svc.CreateCategory(context.Background(), managerActor(), CategoryRequest{Name: "Islay", Description: "Peated coastal malts"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := svc.UpdateCategory(context.Background(), managerActor(), created.ID, CategoryRequest{Name: "Islay", Description: "Peated malts"}); err != nil {
		t.Fatalf("update category: %v", err)
	}
	if err := svc.DeleteCategory(context.Background(), superAdminActor(), created.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	records := sink.Records()
	if len(records) != 3 {
		t.Fatalf("sink holds %d records, want 3", len(records))
	}
	wantActions := []string{audit.ActionCreateCategory, audit.ActionUpdateCategory, audit.ActionDeleteCategory}
	for i, want := range wantActions {
		if records[i].Action != want {
			t.Fatalf("record %d action = %q, want %q", i, records[i].Action, want)
		}
	}
	update := records[1].Changes
	if len(update) != 1 || update["description"].To != "Peated malts" {
		t.Fatalf("update diff = %v", update)
	}
}
