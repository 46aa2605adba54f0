package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, errdefs.Business("invalid id in path")
	}
	return id, nil
}

func (h *Handler) handleProductList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ProductFilter{
		Name:       q.Get("keyword"),
		CategoryID: httputil.QueryInt64(r, "category_id"),
		PageArgs:   httputil.PageFromQuery(r),
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true" || v == "1"
		f.Status = &active
	}
	list, total, err := h.app.Catalog.ListProducts(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, list, total, f.PageArgs)
}

func (h *Handler) handleProductGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	p, err := h.app.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, p)
}

func (h *Handler) handleProductCreate(w http.ResponseWriter, r *http.Request) {
	var payload product.Product
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	payload.ID = 0

	p, err := h.app.Catalog.CreateProduct(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, p)
}

func (h *Handler) handleProductUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var payload product.Product
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	payload.ID = id

	p, err := h.app.Catalog.UpdateProduct(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, p)
}

func (h *Handler) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if err := h.app.Catalog.DeleteProduct(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

func (h *Handler) handleProductStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var payload struct {
		Status *bool `json:"status" validate:"required"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.app.Catalog.SetProductStatus(r.Context(), id, *payload.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, p)
}

func (h *Handler) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	f := storage.CategoryFilter{
		Name:     r.URL.Query().Get("keyword"),
		PageArgs: httputil.PageFromQuery(r),
	}
	list, total, err := h.app.Catalog.ListCategories(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, list, total, f.PageArgs)
}

func (h *Handler) handleCategoryGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	c, err := h.app.Catalog.GetCategory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handler) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var payload product.Category
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	payload.ID = 0

	c, err := h.app.Catalog.CreateCategory(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handler) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var payload product.Category
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	payload.ID = id

	c, err := h.app.Catalog.UpdateCategory(r.Context(), payload)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handler) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if err := h.app.Catalog.DeleteCategory(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}
