package handler

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/catalog-editor/internal/domain/product"
)

// decodeCandidate reads a product candidate from a JSON body or from form
// fields named "name" and "price".
func (h *Handler) decodeCandidate(w http.ResponseWriter, r *http.Request) (product.Candidate, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return product.Candidate{}, errors.Wrap(err, "parse form")
		}
		return product.Candidate{
			Name:  r.PostFormValue("name"),
			Price: r.PostFormValue("price"),
		}, nil
	default:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return product.Candidate{}, errors.Wrap(err, "read body")
		}
		return product.DecodeCandidate(data)
	}
}
