package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrCorruptPayload reports that a stored cart payload failed schema
// validation. Callers decide whether to surface or repair.
var ErrCorruptPayload = errors.New("corrupt cart payload")

// EncodeCart serializes a cart to its stored JSON form: an object keyed by
// slug, each value holding quantity, price, and productId. Prices are encoded
// as decimal strings to avoid float round-tripping.
func EncodeCart(c Cart) []byte {
	var e jx.Encoder
	e.ObjStart()
	for slug, item := range c {
		e.FieldStart(slug)
		e.ObjStart()
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("price")
		e.Str(item.Price.String())
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.ObjEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}

// DecodeCart parses and validates a stored cart payload. Stored data is
// treated as untrusted input: any structural or semantic violation
// (non-object payload, missing fields, quantity below 1, unparseable price,
// empty productId) is reported via ErrCorruptPayload. Unknown fields are
// skipped for forward compatibility.
func DecodeCart(data []byte) (Cart, error) {
	c := Cart{}
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, slug string) error {
		if slug == "" {
			return errors.New("empty slug key")
		}
		item, err := decodeLineItem(d)
		if err != nil {
			return errors.Wrapf(err, "line item %q", slug)
		}
		c[slug] = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return c, nil
}

func decodeLineItem(d *jx.Decoder) (LineItem, error) {
	var (
		item                                 LineItem
		seenQuantity, seenPrice, seenInnerID bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			item.Quantity = v
			seenQuantity = true
		case "price":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, err := decimal.NewFromString(s)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			item.Price = price
			seenPrice = true
		case "productId":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "productId")
			}
			item.ProductID = s
			seenInnerID = true
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return item, err
	}

	switch {
	case !seenQuantity || !seenPrice || !seenInnerID:
		return item, errors.New("missing required fields")
	case item.Quantity < 1:
		return item, errors.Errorf("quantity %d below 1", item.Quantity)
	case item.ProductID == "":
		return item, errors.New("empty productId")
	}
	return item, nil
}
