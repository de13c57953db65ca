package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
)

func parseInt64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func parseProductFilter(r *http.Request) repository.ProductFilter {
	q := r.URL.Query()
	f := repository.ProductFilter{
		Query:  q.Get("q"),
		Flavor: q.Get("flavor"),
		Sort:   q.Get("sort"),
	}

	if v, err := strconv.ParseInt(q.Get("category"), 10, 64); err == nil {
		f.CategoryID = &v
	}
	if v, err := strconv.ParseInt(q.Get("minPrice"), 10, 64); err == nil {
		f.MinPrice = &v
	}
	if v, err := strconv.ParseInt(q.Get("maxPrice"), 10, 64); err == nil {
		f.MaxPrice = &v
	}
	f.Featured = q.Get("featured") == "true"
	f.FlashSale = q.Get("flashSale") == "true"

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	return f
}

type productListResponse struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
}

// ListProducts возвращает страницу каталога под фильтром из query-параметров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := parseProductFilter(r)

	products, total, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		h.serviceError(w, err, "list products error")
		return
	}

	page := f.Page
	if page == 0 {
		page = 1
	}
	h.writeJSON(w, http.StatusOK, productListResponse{
		Products: products,
		Total:    total,
		Page:     page,
	})
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(r, "id")
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "get product error")
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// GetProductBySlug возвращает товар по слагу.
func (h *Handler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	p, err := h.service.GetProductBySlug(r.Context(), slug)
	if err != nil {
		h.serviceError(w, err, "get product by slug error")
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// CreateProduct создаёт товар каталога (только администратор).
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.CreateProduct(r.Context(), &p)
	if err != nil {
		h.serviceError(w, err, "create product error")
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct обновляет товар каталога (только администратор).
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(r, "id")
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.ID = id

	updated, err := h.service.UpdateProduct(r.Context(), &p)
	if err != nil {
		h.serviceError(w, err, "update product error")
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteProduct удаляет товар каталога (только администратор).
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(r, "id")
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.serviceError(w, err, "delete product error")
		return
	}

	h.writeMessage(w, http.StatusOK, "product deleted")
}

// ListCategories возвращает категории каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.serviceError(w, err, "list categories error")
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// CreateCategory создаёт категорию каталога (только администратор).
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.serviceError(w, err, "create category error")
		return
	}

	h.writeJSON(w, http.StatusCreated, c)
}
