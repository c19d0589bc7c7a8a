package state

import (
	"encoding/binary"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"lukechampine.com/blake3"
)

const discriminatorSize = 8

type discriminator [discriminatorSize]byte

func discriminatorFor(name string) discriminator {
	sum := blake3.Sum256([]byte("account:" + name))
	var d discriminator
	copy(d[:], sum[:discriminatorSize])
	return d
}

const idSize = 1 + MaxIDLen

// encoder writes little-endian fixed-width fields into a preallocated record.
type encoder struct {
	buf []byte
	off int
}

func newEncoder(size int) *encoder {
	return &encoder{buf: make([]byte, size)}
}

func (e *encoder) bytes(b []byte) {
	copy(e.buf[e.off:], b)
	e.off += len(b)
}

func (e *encoder) u8(v uint8) {
	e.buf[e.off] = v
	e.off++
}

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *encoder) i64(v int64) {
	e.u64(uint64(v))
}

func (e *encoder) addr(a address.Address) {
	e.bytes(a[:])
}

func (e *encoder) id(s string) error {
	if len(s) > MaxIDLen {
		return fmt.Errorf("%w: identifier %q exceeds %d bytes", ErrInvalidLayout, s, MaxIDLen)
	}
	e.u8(uint8(len(s)))
	copy(e.buf[e.off:], s)
	e.off += MaxIDLen
	return nil
}

func (e *encoder) addrs(list []address.Address, capacity int) error {
	if len(list) > capacity {
		return fmt.Errorf("%w: %d addresses exceed capacity %d", ErrInvalidLayout, len(list), capacity)
	}
	e.u8(uint8(len(list)))
	for _, a := range list {
		e.addr(a)
	}
	e.off += (capacity - len(list)) * address.Size
	return nil
}

// skip leaves zeroed padding for unused fixed slots.
func (e *encoder) skip(n int) {
	e.off += n
}

type decoder struct {
	buf []byte
	off int
}

func newDecoder(data []byte, want int, disc discriminator) (*decoder, error) {
	if len(data) != want {
		return nil, fmt.Errorf("%w: record is %d bytes, want %d", ErrInvalidLayout, len(data), want)
	}
	var got discriminator
	copy(got[:], data[:discriminatorSize])
	if got != disc {
		return nil, ErrDiscriminator
	}
	return &decoder{buf: data, off: discriminatorSize}, nil
}

func (d *decoder) u8() uint8 {
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) u64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decoder) i64() int64 {
	return int64(d.u64())
}

func (d *decoder) addr() address.Address {
	var a address.Address
	copy(a[:], d.buf[d.off:d.off+address.Size])
	d.off += address.Size
	return a
}

func (d *decoder) id() (string, error) {
	n := int(d.u8())
	if n > MaxIDLen {
		return "", fmt.Errorf("%w: identifier length %d", ErrInvalidLayout, n)
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += MaxIDLen
	return s, nil
}

func (d *decoder) addrs(capacity int) ([]address.Address, error) {
	n := int(d.u8())
	if n > capacity {
		return nil, fmt.Errorf("%w: %d addresses exceed capacity %d", ErrInvalidLayout, n, capacity)
	}
	list := make([]address.Address, n)
	for i := range list {
		list[i] = d.addr()
	}
	d.off += (capacity - n) * address.Size
	return list, nil
}

func (d *decoder) count(capacity int) (int, error) {
	n := int(d.u8())
	if n > capacity {
		return 0, fmt.Errorf("%w: %d entries exceed capacity %d", ErrInvalidLayout, n, capacity)
	}
	return n, nil
}

func (d *decoder) skip(n int) {
	d.off += n
}
