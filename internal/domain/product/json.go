package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as {"id","name","price"} with price as a JSON number.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))
	e.ObjEnd()
}

// Decode reads a product object. Numeric ids are accepted and kept in
// their textual form; unknown fields are skipped.
func (p *Product) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			id, err := decodeText(d)
			if err != nil {
				return errors.Wrap(err, "id")
			}
			p.ID = id
		case "name":
			name, err := decodeText(d)
			if err != nil {
				return errors.Wrap(err, "name")
			}
			p.Name = name
		case "price":
			raw, err := decodeText(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			if raw == "" {
				p.Price = decimal.Zero
				return nil
			}
			price, err := ParsePrice(raw)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			p.Price = price
		default:
			return d.Skip()
		}
		return nil
	})
}

// DecodeProduct parses a single product document.
func DecodeProduct(data []byte) (Product, error) {
	var p Product
	if err := p.Decode(jx.DecodeBytes(data)); err != nil {
		return Product{}, errors.Wrap(err, "decode product")
	}
	return p, nil
}

// DecodeProducts parses a JSON array of products. A null document yields an
// empty list.
func DecodeProducts(data []byte) ([]Product, error) {
	d := jx.DecodeBytes(data)
	products := make([]Product, 0)
	if d.Next() == jx.Null {
		return products, d.Null()
	}
	if err := d.Arr(func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

// EncodeProducts writes products as a JSON array.
func EncodeProducts(e *jx.Encoder, products []Product) {
	e.ArrStart()
	for _, p := range products {
		p.Encode(e)
	}
	e.ArrEnd()
}

// MarshalInput renders the request body sent to the product API. The id
// field is included only when id is non-empty (updates).
func MarshalInput(in Input, id ID) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("name")
	e.Str(in.Name)
	e.FieldStart("price")
	e.Num(jx.Num(in.Price.String()))
	if id != "" {
		e.FieldStart("id")
		e.Str(string(id))
	}
	e.ObjEnd()
	return e.Bytes()
}

// DecodeCandidate reads {"name","price"} from a caller. Price may be a JSON
// number or a string; null or a missing field leaves it empty.
func DecodeCandidate(data []byte) (Candidate, error) {
	c, err := decodeCandidate(jx.DecodeBytes(data))
	if err != nil {
		return Candidate{}, errors.Wrap(err, "decode candidate")
	}
	return c, nil
}

// DecodeCandidates reads a JSON array of candidates, as found in seed files.
func DecodeCandidates(data []byte) ([]Candidate, error) {
	var out []Candidate
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		c, err := decodeCandidate(d)
		if err != nil {
			return errors.Wrapf(err, "element %d", len(out))
		}
		out = append(out, c)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode candidates")
	}
	return out, nil
}

func decodeCandidate(d *jx.Decoder) (Candidate, error) {
	var c Candidate
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			name, err := decodeText(d)
			if err != nil {
				return errors.Wrap(err, "name")
			}
			c.Name = name
		case "price":
			price, err := decodeText(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			c.Price = price
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// decodeText reads a string or number as text. Null reads as "".
func decodeText(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return string(n), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}
