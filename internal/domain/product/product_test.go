package product

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "alphanumeric", input: "p1", ok: true},
		{name: "uuid", input: "3f2b8c1e-9a4d-4f7e-b1c2-0d9e8f7a6b5c", ok: true},
		{name: "underscore", input: "SKU_42", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "injection", input: "p1; drop", ok: false},
		{name: "path traversal", input: "../admin", ok: false},
		{name: "slash", input: "p1/p2", ok: false},
		{name: "query", input: "p1?x=1", ok: false},
		{name: "space", input: "p 1", ok: false},
		{name: "non-ascii", input: "商品1", ok: false},
		{name: "trailing newline", input: "p1\n", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.input, id.String())
				return
			}
			require.ErrorIs(t, err, ErrInvalidID)
			assert.Empty(t, id)
		})
	}
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		in      Candidate
		field   string
		message string
	}{
		{name: "missing name", in: Candidate{Price: "10"}, field: "name", message: MsgNameRequired},
		{name: "blank name", in: Candidate{Name: "   ", Price: "10"}, field: "name", message: MsgNameRequired},
		{name: "missing price", in: Candidate{Name: "Widget"}, field: "price", message: MsgPriceRequired},
		{name: "not a number", in: Candidate{Name: "Widget", Price: "abc"}, field: "price", message: MsgPriceNaN},
		{name: "trailing garbage", in: Candidate{Name: "Widget", Price: "12abc"}, field: "price", message: MsgPriceNaN},
		{name: "zero", in: Candidate{Name: "Widget", Price: "0"}, field: "price", message: MsgPricePositive},
		{name: "negative", in: Candidate{Name: "Widget", Price: "-5"}, field: "price", message: MsgPricePositive},
		{name: "huge exponent", in: Candidate{Name: "Widget", Price: "1e50000000"}, field: "price", message: MsgPriceNaN},
		{name: "tiny exponent", in: Candidate{Name: "Widget", Price: "1e-50000000"}, field: "price", message: MsgPriceNaN},
		{name: "max int32 exponent", in: Candidate{Name: "Widget", Price: "1e2000000000"}, field: "price", message: MsgPriceNaN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.ValidateFields()
			require.ErrorIs(t, err, ErrValidation)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}
}

func TestValidateFields_Coercion(t *testing.T) {
	in, err := Candidate{Name: "Widget", Price: " 149.99 "}.ValidateFields()
	require.NoError(t, err)
	assert.Equal(t, "Widget", in.Name)
	assert.True(t, decimal.RequireFromString("149.99").Equal(in.Price))

	in, err = Candidate{Name: "Widget", Price: "1.5e2"}.ValidateFields()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(in.Price))
}

func TestValidate_GenericMessage(t *testing.T) {
	for _, c := range []Candidate{
		{Price: "10"},
		{Name: "Widget"},
		{Name: "Widget", Price: "abc"},
		{Name: "Widget", Price: "-1"},
		{Name: "Widget", Price: "1e50000000"},
		{Name: "Widget", Price: "1e-50000000"},
	} {
		_, err := c.Validate()
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, GenericValidationMessage, err.Error())
	}

	in, err := Candidate{Name: "Widget", Price: "100"}.Validate()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(in.Price))
}

func TestDecodeProducts(t *testing.T) {
	products, err := DecodeProducts([]byte(`[
		{"id":"p1","name":"Widget","price":100},
		{"id":42,"name":"Gadget","price":"19.90","stock":3}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "Widget", products[0].Name)
	assert.True(t, decimal.NewFromInt(100).Equal(products[0].Price))

	assert.Equal(t, "42", products[1].ID)
	assert.True(t, decimal.RequireFromString("19.9").Equal(products[1].Price))
}

func TestDecodeProducts_Null(t *testing.T) {
	products, err := DecodeProducts([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestDecodeProduct_Invalid(t *testing.T) {
	_, err := DecodeProduct([]byte(`{"id":"p1","price":"cheap"}`))
	require.Error(t, err)

	_, err = DecodeProduct([]byte(`not json`))
	require.Error(t, err)

	_, err = DecodeProduct([]byte(`{"id":"p1","name":"Widget","price":1e50000000}`))
	require.ErrorIs(t, err, ErrPriceRange)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		err  error
	}{
		{raw: "149.99", want: "149.99"},
		{raw: "1.5e2", want: "150"},
		{raw: "1e37", want: "10000000000000000000000000000000000000"},
		{raw: "1e38", err: ErrPriceRange},
		{raw: "1e-38", err: ErrPriceRange},
		{raw: "-1e50000000", err: ErrPriceRange},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			price, err := ParsePrice(tt.raw)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, price.String())
		})
	}

	_, err := ParsePrice("cheap")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPriceRange)
}

func TestProductEncode(t *testing.T) {
	var e jx.Encoder
	Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("100.50")}.Encode(&e)
	assert.JSONEq(t, `{"id":"p1","name":"Widget","price":100.5}`, string(e.Bytes()))
}

func TestMarshalInput(t *testing.T) {
	in := Input{Name: "Widget", Price: decimal.NewFromInt(150)}

	assert.JSONEq(t, `{"name":"Widget","price":150}`, string(MarshalInput(in, "")))
	assert.JSONEq(t, `{"name":"Widget","price":150,"id":"p1"}`, string(MarshalInput(in, "p1")))
}

func TestDecodeCandidate(t *testing.T) {
	c, err := DecodeCandidate([]byte(`{"name":"Widget","price":100}`))
	require.NoError(t, err)
	assert.Equal(t, Candidate{Name: "Widget", Price: "100"}, c)

	c, err = DecodeCandidate([]byte(`{"name":"Widget","price":"12.5","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, Candidate{Name: "Widget", Price: "12.5"}, c)

	c, err = DecodeCandidate([]byte(`{"name":"Widget","price":null}`))
	require.NoError(t, err)
	assert.Empty(t, c.Price)

	_, err = DecodeCandidate([]byte(`{"name":["Widget"]}`))
	require.Error(t, err)

	_, err = DecodeCandidate([]byte(`[]`))
	require.True(t, err != nil && !errors.Is(err, ErrValidation))
}

func TestDecodeCandidates(t *testing.T) {
	cs, err := DecodeCandidates([]byte(`[{"name":"Widget","price":100},{"name":"Gadget","price":"2.5","id":"ignored"}]`))
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Name: "Widget", Price: "100"}, {Name: "Gadget", Price: "2.5"}}, cs)

	_, err = DecodeCandidates([]byte(`[{"name":"Widget"},42]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")

	_, err = DecodeCandidates([]byte(`{"name":"Widget"}`))
	require.Error(t, err)
}
