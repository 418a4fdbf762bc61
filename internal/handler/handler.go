// Package handler maps HTTP requests onto the order store and the
// classification adapter. Handlers are stateless: every request is a single
// request→response transition with no state carried between calls.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/vision-order-api/internal/classify"
	"github.com/xenking/vision-order-api/internal/domain/order"
)

// OrderStore is the slice of store behavior the handlers need.
type OrderStore interface {
	List() []*order.Order
	GetByID(id uuid.UUID) (*order.Order, error)
	Append(o *order.Order)
	UpdateByID(id uuid.UUID, products []order.Product) (*order.Order, error)
}

// Classifier produces predictions for uploaded image bytes.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]classify.Prediction, error)
}

// orderNotFoundMessage is the body returned for unknown order IDs. Absence is
// a normal response, not a transport-level error: the status stays 200.
const orderNotFoundMessage = "order not found"

// maxUploadMemory bounds the in-memory portion of multipart parsing; larger
// uploads spill to temp files.
const maxUploadMemory = 32 << 20

// Handler serves the order API. Dependencies are injected at construction;
// there are no hidden globals.
type Handler struct {
	store      OrderStore
	classifier Classifier
}

// New constructs a Handler around the given store and classifier.
func New(store OrderStore, classifier Classifier) *Handler {
	return &Handler{
		store:      store,
		classifier: classifier,
	}
}

// Routes registers all API routes on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Hello)
	mux.HandleFunc("GET /order", h.ListOrders)
	mux.HandleFunc("POST /order", h.CreateOrder)
	mux.HandleFunc("GET /order/{order_id}", h.GetOrder)
	mux.HandleFunc("PATCH /order/{order_id}", h.UpdateOrder)
	mux.HandleFunc("GET /bill/{order_id}", h.GetBill)
	return mux
}

// Hello is the root endpoint.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("hello")
		e.Str("world")
		e.ObjEnd()
	})
}

// writeJSON encodes a response body with jx and writes it with the given
// status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

// writeNotFound writes the structured not-found message with a 200 status.
func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(orderNotFoundMessage)
		e.ObjEnd()
	})
}

// writeError writes a {code, message} error body with a matching status.
func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeJSON(w, r, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}
