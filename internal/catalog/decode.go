package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/devops-storefront/internal/domain/product"
)

// decodeProducts reads a JSON array of product records, preserving order.
func decodeProducts(d *jx.Decoder) ([]product.Product, error) {
	if d.Next() != jx.Array {
		return nil, errors.Errorf("expected array, got %s", d.Next())
	}

	products := make([]product.Product, 0, 8)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "record %d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	if d.Next() != jx.Invalid {
		return nil, errors.New("unexpected data after array")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p                       product.Product
		hasID, hasName, hasCost bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			id, err := decodeText(d)
			if err != nil {
				return errors.Wrap(err, "id")
			}
			p.ID, hasID = id, id != ""
		case "name":
			name, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			p.Name, hasName = name, true
		case "description":
			if d.Next() == jx.Null {
				return d.Null()
			}
			desc, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "description")
			}
			p.Description = desc
		case "price":
			price, err := decodePrice(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			p.Price, hasCost = price, true
		case "image":
			if d.Next() == jx.Null {
				return d.Null()
			}
			img, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "image")
			}
			p.Image = img
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return product.Product{}, err
	}

	switch {
	case !hasID:
		return product.Product{}, errors.New("missing id")
	case !hasName:
		return product.Product{}, errors.New("missing name")
	case !hasCost:
		return product.Product{}, errors.New("missing price")
	}
	return p, nil
}

// decodeText accepts either a JSON string or a JSON number and returns its
// textual form.
func decodeText(d *jx.Decoder) (string, error) {
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

// decodePrice parses a price without a float round-trip. Negative prices
// are rejected.
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	text, err := decodeText(d)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse %q", text)
	}
	if price.IsNegative() {
		return decimal.Zero, errors.Errorf("negative price %s", text)
	}
	return price, nil
}
