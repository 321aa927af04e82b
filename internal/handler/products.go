package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-editor/internal/catalog"
	"github.com/xenking/catalog-editor/internal/domain/product"
)

// GenerationHeader carries the listing generation a response was built at.
const GenerationHeader = "X-Catalog-Generation"

const msgBadBody = "invalid request body"

func encodeProduct(e *jx.Encoder, p product.Product) { p.Encode(e) }

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	gen := h.changes.Generation(catalog.ListingScope)
	res := h.catalog.ListProducts(r.Context())

	w.Header().Set(GenerationHeader, strconv.FormatUint(gen, 10))
	w.Header().Set("Cache-Control", "no-store")
	writeResult(w, http.StatusOK, res, product.EncodeProducts)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	res := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	w.Header().Set("Cache-Control", "no-store")
	writeResult(w, http.StatusOK, res, encodeProduct)
}

// CreateProduct handles POST /api/products with a JSON or form body.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	c, err := h.decodeCandidate(w, r)
	if err != nil {
		h.badBody(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, h.catalog.CreateProduct(r.Context(), c), encodeProduct)
}

// UpdateProduct handles PUT /api/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	c, err := h.decodeCandidate(w, r)
	if err != nil {
		h.badBody(w, r, err)
		return
	}
	res := h.catalog.UpdateProduct(r.Context(), r.PathValue("id"), c)
	writeResult(w, http.StatusOK, res, encodeProduct)
}

// DeleteProduct handles DELETE /api/products/{id}. A successful delete
// answers {"success":true} without data.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	res := h.catalog.DeleteProduct(r.Context(), r.PathValue("id"))
	writeResult(w, http.StatusOK, res, encodeProduct)
}

// ValidateProduct handles POST /api/products/validate. It runs the per-field
// checks the editor form shows inline and never contacts the product API.
func (h *Handler) ValidateProduct(w http.ResponseWriter, r *http.Request) {
	c, err := h.decodeCandidate(w, r)
	if err != nil {
		h.badBody(w, r, err)
		return
	}

	in, err := c.ValidateFields()
	if err != nil {
		var vErr *product.ValidationError
		if !errors.As(err, &vErr) {
			writeFailure(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeFailure(w, http.StatusBadRequest, vErr.Message, func(e *jx.Encoder) {
			e.FieldStart("field")
			e.Str(vErr.Field)
		})
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("data")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(in.Name)
	e.FieldStart("price")
	e.Num(jx.Num(in.Price.String()))
	e.ObjEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) badBody(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Debug("Rejected request body", zap.Error(err))
	writeFailure(w, http.StatusBadRequest, msgBadBody, nil)
}
