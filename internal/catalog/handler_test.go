package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/velvetcask/velvetcask/internal/audit"
	"github.com/velvetcask/velvetcask/internal/authz"
)

func newProductsRouter(repo Repository, sink audit.Sink) http.Handler {
	svc := NewService(repo, audit.NewRecorder(sink, discardLogger()), discardLogger())
	h := NewHandler(discardLogger(), svc)
	r := chi.NewRouter()
	r.Route("/admin/products", h.MountProductRoutes)
	r.Route("/admin/categories", h.MountCategoryRoutes)
	return r
}

func withSession(r *http.Request, sess authz.Session) *http.Request {
	return r.WithContext(authz.ContextWithSession(r.Context(), sess))
}

func TestCreateProductEndpoint(t *testing.T) {
	repo := newMemoryCatalogRepo()
	sink := audit.NewMemorySink()
	router := newProductsRouter(repo, sink)

	body := `{"sku":"VC-HR12","name":"Highland Reserve 12Y","distillery":"Glen Velvet","region":"Highland","categoryId":1,"abv":43,"volumeMl":700,"price":49.99,"stockQuantity":24,"isActive":true}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products/", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.8:51000"
	req = withSession(req, authz.Session{UserID: "mgr-1", DisplayName: "Nina Oak", Role: authz.RoleManager})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created Product
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.ID == 0 || created.SKU != "VC-HR12" {
		t.Fatalf("created = %+v", created)
	}
	if sink.Len() != 1 {
		t.Fatalf("sink holds %d records, want 1", sink.Len())
	}
	if ip := sink.Records()[0].IPAddress; ip != "10.0.0.8" {
		t.Fatalf("record IP = %q", ip)
	}
}

func TestCreateProductEndpointRejectsUnknownFields(t *testing.T) {
	router := newProductsRouter(newMemoryCatalogRepo(), audit.NewMemorySink())

	req := httptest.NewRequest(http.MethodPost, "/admin/products/", strings.NewReader(`{"sku":"X","surprise":1}`))
	req = withSession(req, authz.Session{UserID: "mgr-1", Role: authz.RoleManager})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProductEndpointsRequireSession(t *testing.T) {
	router := newProductsRouter(newMemoryCatalogRepo(), audit.NewMemorySink())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/products/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestDeleteProductEndpointForbiddenForManager(t *testing.T) {
	repo := newMemoryCatalogRepo()
	seeded, err := repo.CreateProduct(context.Background(), highlandReserve().toProduct())
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	router := newProductsRouter(repo, audit.NewMemorySink())

	req := httptest.NewRequest(http.MethodDelete, "/admin/products/1", nil)
	req = withSession(req, authz.Session{UserID: "mgr-1", Role: authz.RoleManager})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager delete status = %d, want 403", rec.Code)
	}
	if _, err := repo.GetProduct(context.Background(), seeded.ID); err != nil {
		t.Fatal("denied delete must keep the product")
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/products/1", nil)
	req = withSession(req, authz.Session{UserID: "adm-1", Role: authz.RoleSuperAdmin})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("super admin delete status = %d, want 204", rec.Code)
	}
}

func TestGetProductEndpointNotFound(t *testing.T) {
	router := newProductsRouter(newMemoryCatalogRepo(), audit.NewMemorySink())

	req := httptest.NewRequest(http.MethodGet, "/admin/products/999", nil)
	req = withSession(req, authz.Session{UserID: "stf-1", Role: authz.RoleStaff})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/products/not-a-number", nil)
	req = withSession(req, authz.Session{UserID: "stf-1", Role: authz.RoleStaff})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestUpdateProductEndpointSinkFailure(t *testing.T) {
	repo := newMemoryCatalogRepo()
	if _, err := repo.CreateProduct(context.Background(), highlandReserve().toProduct()); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	router := newProductsRouter(repo, downSink{})

	body := `{"sku":"VC-HR12","name":"Highland Reserve 12Y","categoryId":1,"abv":43,"volumeMl":700,"price":54.99,"stockQuantity":24,"isActive":true}`
	req := httptest.NewRequest(http.MethodPut, "/admin/products/1", strings.NewReader(body))
	req = withSession(req, authz.Session{UserID: "mgr-1", Role: authz.RoleManager})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	stored, err := repo.GetProduct(context.Background(), 1)
	if err != nil || stored.Price != 54.99 {
		t.Fatalf("mutation must commit even when the trail write fails: %+v, err %v", stored, err)
	}
}
