package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/devops-storefront/internal/cart"
	"github.com/xenking/devops-storefront/internal/domain/product"
	"github.com/xenking/devops-storefront/internal/notify"
	"github.com/xenking/devops-storefront/internal/session"
)

type noticeView struct {
	Message string
	Level   notify.Level
	Top     int
	Dismiss string
}

type productView struct {
	ID          string
	Name        string
	Description string
	Price       string
	Image       string
	Delay       string
}

type lineView struct {
	Name  string
	Price string
}

type pageData struct {
	Title     string
	CartCount int
	Notices   []noticeView

	Products     []productView
	CatalogState string
	Lines        []lineView
	Total        string
	Message      string
}

func (h *Handler) newPage(sess *session.Session, title string) pageData {
	pending := sess.Notices.Drain()
	notices := make([]noticeView, len(pending))
	for i, n := range pending {
		notices[i] = noticeView{
			Message: n.Message,
			Level:   n.Level,
			Top:     20 + i*70,
			Dismiss: strconv.FormatFloat(n.TTL.Seconds(), 'f', -1, 64),
		}
	}
	return pageData{
		Title:     title,
		CartCount: sess.Cart.Count(),
		Notices:   notices,
	}
}

func toProductView(i int, p product.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Image:       p.ImageURL(),
		Delay:       strconv.FormatFloat(float64(i)*0.1, 'f', 1, 64),
	}
}

// Index renders the catalog with the cart counter and pending notices.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	products := h.catalog.Load(r.Context())

	data := h.newPage(sess, "DevOps Store")
	data.Products = make([]productView, len(products))
	for i, p := range products {
		data.Products[i] = toProductView(i, p)
	}
	if cs, ok := h.catalog.(catalogState); ok {
		data.CatalogState = cs.State().String()
	}

	h.render(w, r, http.StatusOK, "index", data)
}

// AddItem handles the add-to-cart form. On success it queues a confirmation
// notice and redirects back to the catalog.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, sess, http.StatusBadRequest, "Malformed form submission.")
		return
	}

	name := r.PostForm.Get("name")
	err := h.addItem(r, sess, r.PostForm.Get("id"), name, r.PostForm.Get("price"))
	if err != nil {
		var invalid *cart.InvalidItemError
		if errors.As(err, &invalid) {
			h.renderError(w, r, sess, http.StatusUnprocessableEntity, invalid.Error())
			return
		}
		h.renderError(w, r, sess, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	session.Keep(r.Context())
	sess.Notices.Push(addedMessage(name), notify.LevelSuccess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowCart renders the cart summary. An empty cart queues the empty notice
// and redirects to the catalog instead.
func (h *Handler) ShowCart(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	summary := sess.Cart.Summarize()
	if summary.Empty {
		// The notice has to survive the redirect.
		session.Keep(r.Context())
		sess.Notices.Push(cart.EmptyMessage, notify.LevelInfo)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := h.newPage(sess, "Your Cart")
	data.Lines = make([]lineView, len(summary.Lines))
	for i, l := range summary.Lines {
		data.Lines[i] = lineView{Name: l.Name, Price: l.Price.String()}
	}
	data.Total = summary.TotalString()

	h.render(w, r, http.StatusOK, "cart", data)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, message string) {
	data := h.newPage(sess, "DevOps Store")
	data.Message = message
	h.render(w, r, status, "error", data)
}

// addItem parses the price and appends to the session cart.
func (h *Handler) addItem(r *http.Request, sess *session.Session, id, name, rawPrice string) error {
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return &cart.InvalidItemError{Field: "price", Reason: "must be a decimal number"}
	}
	return h.addPriced(r, sess, id, name, price)
}

func (h *Handler) addPriced(r *http.Request, sess *session.Session, id, name string, price decimal.Decimal) error {
	ctx := r.Context()
	if err := sess.Cart.Add(id, name, price); err != nil {
		zctx.From(ctx).Info("Rejected cart item",
			zap.String("id", id),
			zap.String("name", name),
			zap.Error(err),
		)
		return err
	}

	h.adds.Add(ctx, 1)
	return nil
}

func addedMessage(name string) string {
	return fmt.Sprintf("%s added to cart!", name)
}
