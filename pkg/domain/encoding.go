package domain

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// EncodeOrder renders o in the normative nested, big-endian wire format
// (see SPEC_FULL.md §6). The field order below — including the
// expires_at, status, created_at tail — is normative and must match
// DecodeOrder exactly; external indexers decode events with this same
// layout.
func EncodeOrder(o *Order) []byte {
	buf := make([]byte, 0, 128)

	buf = appendUint64(buf, o.OrderID)
	buf = append(buf, o.Owner[:]...)
	buf = appendLenPrefixed(buf, []byte(o.FromToken))
	buf = appendLenPrefixed(buf, bigIntBytes(o.FromAmount))
	buf = appendLenPrefixed(buf, []byte(o.ToToken))
	buf = appendLenPrefixed(buf, bigIntBytes(o.TargetNum))
	buf = appendLenPrefixed(buf, bigIntBytes(o.TargetDenom))
	buf = appendUint64(buf, o.SlippageBp)
	buf = appendUint64(buf, o.ExpiresAt)
	buf = append(buf, byte(o.Status))
	buf = appendUint64(buf, o.CreatedAt)

	return buf
}

// DecodeOrder parses the wire format produced by EncodeOrder.
func DecodeOrder(b []byte) (*Order, error) {
	r := &reader{buf: b}

	orderID := r.uint64()
	owner := r.address()
	fromToken := r.lenPrefixed()
	fromAmount := r.lenPrefixedBig()
	toToken := r.lenPrefixed()
	targetNum := r.lenPrefixedBig()
	targetDenom := r.lenPrefixedBig()
	slippageBp := r.uint64()
	expiresAt := r.uint64()
	status := r.byte1()
	createdAt := r.uint64()

	if r.err != nil {
		return nil, fmt.Errorf("domain: decode order: %w", r.err)
	}

	return &Order{
		OrderID:     orderID,
		Owner:       owner,
		FromToken:   TokenID(fromToken),
		FromAmount:  fromAmount,
		ToToken:     TokenID(toToken),
		TargetNum:   targetNum,
		TargetDenom: targetDenom,
		SlippageBp:  slippageBp,
		ExpiresAt:   expiresAt,
		Status:      OrderStatus(status),
		CreatedAt:   createdAt,
	}, nil
}

func bigIntBytes(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return nil
	}
	return v.Bytes()
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLenPrefixed(buf []byte, data []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(data)))
	buf = append(buf, tmp[:]...)
	return append(buf, data...)
}

// reader sequentially consumes the normative wire layout, recording the
// first error encountered so callers only need to check it once at the end.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("unexpected end of buffer: need %d bytes, have %d", n, len(r.buf))
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) uint64() uint64 {
	b := r.take(8)
	if r.err != nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) byte1() byte {
	b := r.take(1)
	if r.err != nil {
		return 0
	}
	return b[0]
}

func (r *reader) address() Address {
	b := r.take(AddressLength)
	var a Address
	if r.err == nil {
		copy(a[:], b)
	}
	return a
}

func (r *reader) lenPrefixed() []byte {
	lenBytes := r.take(4)
	if r.err != nil {
		return nil
	}
	n := binary.BigEndian.Uint32(lenBytes)
	data := r.take(int(n))
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

func (r *reader) lenPrefixedBig() *big.Int {
	data := r.lenPrefixed()
	if r.err != nil {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(data)
}
