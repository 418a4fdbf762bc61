package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vision-order-api/internal/classify"
	"github.com/xenking/vision-order-api/internal/domain/order"
)

// ListOrders returns every order in creation order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.store.List()
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrders(e, orders)
	})
}

// GetOrder returns a single order by ID, or the not-found message.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.store.GetByID(id)
	if err != nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// CreateOrder reads every uploaded file, classifies them, wraps each result
// in an inference product, and appends the resulting order to the store.
// Upload order is preserved in the product sequence. A single classification
// failure aborts the whole request: partial orders are never persisted, and
// nothing is retried.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, "files required")
		return
	}

	images := make([][]byte, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errors.Wrapf(err, "open %s", fh.Filename).Error())
			return
		}
		images[i], err = io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errors.Wrapf(err, "read %s", fh.Filename).Error())
			return
		}
	}

	// Classify concurrently; results are written by index so product order
	// matches upload order. The first failure cancels the rest.
	results := make([][]classify.Prediction, len(images))
	g, ctx := errgroup.WithContext(r.Context())
	for i, img := range images {
		g.Go(func() error {
			preds, err := h.classifier.Classify(ctx, img)
			if err != nil {
				return errors.Wrapf(err, "classify %s", files[i].Filename)
			}
			results[i] = preds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		zctx.From(r.Context()).Error("classification failed", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	products := make([]order.Product, len(results))
	for i, result := range results {
		products[i] = order.NewInferenceProduct(result)
	}

	o := order.NewOrder(products...)
	h.store.Append(o)

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// UpdateOrder applies the supplied products to an existing order. Each
// product is added idempotently by ID; unknown order IDs produce the
// not-found message.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read request body")
		return
	}
	products, err := decodeOrderUpdate(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.store.UpdateByID(id, products)
	if err != nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// GetBill returns the order's bill as a bare JSON number, or the not-found
// message.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.store.GetByID(id)
	if err != nil {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Float64(o.Bill().InexactFloat64())
	})
}

// orderID parses the order_id path value. A malformed ID is a validation
// failure and is rejected before any store access.
func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("order_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}
