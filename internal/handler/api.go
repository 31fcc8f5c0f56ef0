package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/devops-storefront/internal/cart"
	"github.com/xenking/devops-storefront/internal/domain/product"
	"github.com/xenking/devops-storefront/internal/session"
)

const maxBodySize = 64 << 10

// APICatalog returns the resolved catalog as a JSON array.
func (h *Handler) APICatalog(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Load(r.Context())

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				encodeProduct(e, p)
			}
		})
	})
}

// APICart returns the cart summary. An empty cart is reported with
// "empty": true and the empty-cart message instead of a zero total.
func (h *Handler) APICart(w http.ResponseWriter, r *http.Request) {
	summary := h.session(r).Cart.Summarize()

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(summary.Count()) })
			e.Field("empty", func(e *jx.Encoder) { e.Bool(summary.Empty) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, l := range summary.Lines {
						e.Obj(func(e *jx.Encoder) {
							e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
							e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
							e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(l.Price.String())) })
						})
					}
				})
			})
			if summary.Empty {
				e.Field("message", func(e *jx.Encoder) { e.Str(cart.EmptyMessage) })
				return
			}
			e.Field("total", func(e *jx.Encoder) { e.Str(summary.TotalString()) })
			e.Field("summary", func(e *jx.Encoder) { e.Str(summary.String()) })
		})
	})
}

// APIAddItem appends {"id","name","price"} to the session cart and returns
// the new count with the confirmation notice.
func (h *Handler) APIAddItem(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	req, err := decodeAddItem(jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !req.hasPrice {
		writeError(w, http.StatusUnprocessableEntity, (&cart.InvalidItemError{Field: "price", Reason: "is required"}).Error())
		return
	}

	price, err := decimal.NewFromString(req.price)
	if err == nil {
		err = h.addPriced(r, sess, req.id, req.name, price)
	} else {
		err = &cart.InvalidItemError{Field: "price", Reason: "must be a decimal number"}
	}
	if err != nil {
		if errors.Is(err, cart.ErrInvalidItem) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	session.Keep(r.Context())
	count := sess.Cart.Count()
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(count) })
			e.Field("notice", func(e *jx.Encoder) { e.Str(addedMessage(req.name)) })
		})
	})
}

type addItemRequest struct {
	id       string
	name     string
	price    string
	hasPrice bool
}

func decodeAddItem(d *jx.Decoder) (addItemRequest, error) {
	var req addItemRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			req.id, err = scalarText(d)
		case "name":
			req.name, err = d.Str()
		case "price":
			req.price, err = scalarText(d)
			req.hasPrice = true
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return addItemRequest{}, err
	}
	// Trailing garbage after the object is a malformed body too.
	if d.Next() != jx.Invalid {
		return addItemRequest{}, errors.New("unexpected data after object")
	}
	return req, nil
}

func scalarText(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return "", err
		}
		return raw.String(), nil
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(p.Price.String())) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.ImageURL()) })
	})
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}
