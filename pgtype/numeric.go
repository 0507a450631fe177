package pgtype

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/relaywire/pgreplicate/errkind"
)

// PostgreSQL numeric binary format: int16 ndigits, int16 weight, uint16
// sign, uint16 dscale, then ndigits base-10000 int16 digits (§4.2).
const (
	numericPos     uint16 = 0x0000
	numericNeg     uint16 = 0x4000
	numericNaN     uint16 = 0xC000
	numericPinf    uint16 = 0xD000
	numericNinf    uint16 = 0xF000
	numericDigits  = 10000
	numericDigitsW = 4
)

func decodeNumeric(src []byte) (any, error) {
	if len(src) < 8 {
		return nil, fmt.Errorf("pgtype: numeric body too short (%d bytes)", len(src))
	}

	ndigits := be16(src[0:2])
	weight := int16(be16(src[2:4]))
	sign := be16(src[4:6])
	dscale := be16(src[6:8])

	switch sign {
	case numericNaN:
		return decimal.Decimal{}, fmt.Errorf("pgtype: numeric NaN has no decimal.Decimal representation")
	case numericPinf, numericNinf:
		return nil, fmt.Errorf("pgtype: numeric +/-Infinity has no decimal.Decimal representation")
	}

	digits := make([]uint16, ndigits)
	off := 8
	for i := range digits {
		if off+2 > len(src) {
			return nil, fmt.Errorf("pgtype: numeric truncated digit list")
		}
		digits[i] = be16(src[off : off+2])
		off += 2
	}

	// Reassemble the base-10000 digit groups into a plain integer, then
	// apply the decimal point implied by weight and scale.
	intVal := new(big.Int)
	base := big.NewInt(numericDigits)
	for _, d := range digits {
		intVal.Mul(intVal, base)
		intVal.Add(intVal, big.NewInt(int64(d)))
	}

	// intVal currently represents the digit groups packed together with
	// an implicit exponent of (len(digits)-1-weight) groups of 4 decimal
	// digits below the decimal point.
	exp := (int(weight) + 1 - len(digits)) * numericDigitsW

	d := decimal.NewFromBigInt(intVal, int32(exp))
	if sign == numericNeg {
		d = d.Neg()
	}

	// decimal.NewFromBigInt already encodes the exponent; round to
	// dscale only when the server declared fewer fractional digits than
	// the raw groups imply (trailing zero groups are never sent).
	if int32(dscale) < -d.Exponent() {
		d = d.Round(int32(dscale))
	}

	return d, nil
}

func encodeNumeric(v any) ([]byte, error) {
	var d decimal.Decimal
	switch t := v.(type) {
	case decimal.Decimal:
		d = t
	case *decimal.Decimal:
		d = *t
	case float64:
		d = decimal.NewFromFloat(t)
	case int64:
		d = decimal.NewFromInt(t)
	case string:
		parsed, err := decimal.NewFromString(t)
		if err != nil {
			return nil, fmt.Errorf("pgtype: encode numeric: %w", err)
		}
		d = parsed
	default:
		return nil, fmt.Errorf("pgtype: cannot encode %T as numeric", v)
	}

	if d.IsZero() {
		// Zero has length 0: ndigits=0, weight=0, sign=positive, dscale=0.
		buf := make([]byte, 8)
		return buf, nil
	}

	sign := numericPos
	coeff := d.Coefficient()
	if coeff.Sign() < 0 {
		sign = numericNeg
		coeff = new(big.Int).Abs(coeff)
	}
	if d.Exponent() > 0 {
		coeff = new(big.Int).Mul(coeff, pow10(int(d.Exponent())))
	}
	dscale := uint16(0)
	if d.Exponent() < 0 {
		if -int64(d.Exponent()) > math.MaxInt16 {
			return nil, errkind.Unsupportedf(fmt.Errorf("pgtype: numeric scale %d does not fit the wire format", -int64(d.Exponent())))
		}
		dscale = uint16(-d.Exponent())
	}

	// Convert the base-10 coefficient into base-10000 digit groups, most
	// significant group first, aligned so the fractional part starts on
	// a 4-digit boundary (padding with the appropriate power of ten).
	pad := (numericDigitsW - int(dscale)%numericDigitsW) % numericDigitsW
	scaled := new(big.Int).Mul(coeff, pow10(pad))

	var groups []uint16
	base := big.NewInt(numericDigits)
	rem := new(big.Int)
	tmp := new(big.Int).Set(scaled)
	for tmp.Sign() > 0 {
		tmp.DivMod(tmp, base, rem)
		groups = append([]uint16{uint16(rem.Int64())}, groups...)
	}
	if len(groups) == 0 {
		groups = []uint16{0}
	}
	if len(groups) > math.MaxInt16 {
		return nil, errkind.Unsupportedf(fmt.Errorf("pgtype: numeric needs %d digit groups, more than the wire format holds", len(groups)))
	}

	fracGroups := (int(dscale) + pad) / numericDigitsW
	weight := int16(len(groups) - fracGroups - 1)

	buf := make([]byte, 8+2*len(groups))
	putBE16(buf[0:2], uint16(len(groups)))
	putBE16(buf[2:4], uint16(weight))
	putBE16(buf[4:6], sign)
	putBE16(buf[6:8], dscale)
	for i, g := range groups {
		putBE16(buf[8+2*i:10+2*i], g)
	}

	return buf, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func putBE16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
