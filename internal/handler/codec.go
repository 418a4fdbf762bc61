package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/vision-order-api/internal/classify"
	"github.com/xenking/vision-order-api/internal/domain/order"
)

func encodeOrders(e *jx.Encoder, orders []*order.Order) {
	e.ArrStart()
	for _, o := range orders {
		encodeOrder(e, o)
	}
	e.ArrEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID.String())
	e.FieldStart("products")
	e.ArrStart()
	for i := range o.Products {
		encodeProduct(e, &o.Products[i])
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p *order.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID.String())
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	if p.Result != nil {
		e.FieldStart("result")
		encodePredictions(e, p.Result)
	}
	e.ObjEnd()
}

func encodePredictions(e *jx.Encoder, preds []classify.Prediction) {
	e.ArrStart()
	for _, p := range preds {
		e.ObjStart()
		e.FieldStart("label")
		e.Str(p.Label)
		e.FieldStart("score")
		e.Float64(p.Score)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// decodeOrderUpdate parses a PATCH body of the form
// {"products": [{"id"?, "name", "price"}, ...]}.
//
// A product may carry its own id: that is what makes idempotent re-adds
// observable over the wire. Products without an id get a fresh one.
func decodeOrderUpdate(body []byte) ([]order.Product, error) {
	var products []order.Product
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "products" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d)
			if err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "invalid order update")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (order.Product, error) {
	var (
		p        order.Product
		hasName  bool
		hasPrice bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			s, err := d.Str()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return errors.Wrap(err, "product id")
			}
			p.ID = id
		case "name":
			s, err := d.Str()
			if err != nil {
				return err
			}
			p.Name = s
			hasName = true
		case "price":
			f, err := d.Float64()
			if err != nil {
				return err
			}
			if f < 0 {
				return errors.New("price must be non-negative")
			}
			p.Price = decimal.NewFromFloat(f)
			hasPrice = true
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return p, err
	}

	if !hasName {
		return p, errors.New("product name required")
	}
	if !hasPrice {
		return p, errors.New("product price required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return p, nil
}
