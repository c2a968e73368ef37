package bloom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/cespare/xxhash/v2"
)

// Serialized layout, version 1. All integers are big-endian.
//
//	+--------------------------------+  HeaderBytes
//	| magic "SBF1"            [0:4]  |
//	| version                 [4]    |
//	| hash scheme             [5]    |
//	| reserved (zero)         [6:8]  |
//	| growth ratio      u32   [8:12] |
//	| fp rate       f64 bits  [12:20]|
//	| slice count       u32   [20:24]|
//	| total inserted    u64   [24:32]|
//	+--------------------------------+  per slice, creation order
//	| capacity u64 | fp rate u64     |
//	| count u64 | k u32 | m u64      |
//	| blob length u32 | blob         |  blob = bits-and-blooms WriteTo (m, k, bitset)
//	+--------------------------------+
//	| xxhash64 of all preceding u64  |  trailer
//	+--------------------------------+
const MagicV1 = "SBF1"

const (
	VersionV1         byte = 1
	HashSchemeMurmur3 byte = 1 // bits-and-blooms/bloom/v3 enhanced double hashing
)

const (
	HeaderBytes      = 32
	sliceHeaderBytes = 8 + 8 + 8 + 4 + 8 + 4
	trailerBytes     = 8
)

// MarshalBinary serializes every slice's frozen parameters, insertion count
// and bits in creation order, followed by a checksum trailer.
func (f *Filter) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderBytes, HeaderBytes+trailerBytes+len(f.slices)*sliceHeaderBytes)
	copy(buf[0:4], MagicV1)
	buf[4] = VersionV1
	buf[5] = HashSchemeMurmur3
	binary.BigEndian.PutUint32(buf[8:12], f.growth)
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(f.fpRate))
	binary.BigEndian.PutUint32(buf[20:24], uint32(len(f.slices)))
	binary.BigEndian.PutUint64(buf[24:32], f.Count())

	var blob bytes.Buffer
	for i, s := range f.slices {
		blob.Reset()
		if _, err := s.bf.WriteTo(&blob); err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		if uint64(blob.Len()) > math.MaxUint32 {
			return nil, fmt.Errorf("slice %d: %w", i, ErrSliceTooLarge)
		}
		buf = binary.BigEndian.AppendUint64(buf, s.capacity)
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(s.fpRate))
		buf = binary.BigEndian.AppendUint64(buf, s.count)
		buf = binary.BigEndian.AppendUint32(buf, uint32(s.bf.K()))
		buf = binary.BigEndian.AppendUint64(buf, uint64(s.bf.Cap()))
		buf = binary.BigEndian.AppendUint32(buf, uint32(blob.Len()))
		buf = append(buf, blob.Bytes()...)
	}
	return binary.BigEndian.AppendUint64(buf, xxhash.Sum64(buf)), nil
}

// UnmarshalBinary replaces f with the filter encoded in data.
// On error f is left unchanged.
func (f *Filter) UnmarshalBinary(data []byte) error {
	decoded, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

// Unmarshal reconstructs a Filter from MarshalBinary output. The encoding is
// self-describing; no parameters beyond data are needed.
func Unmarshal(data []byte) (*Filter, error) {
	if len(data) < HeaderBytes+trailerBytes {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != MagicV1 {
		return nil, ErrBadMagic
	}
	if data[4] != VersionV1 {
		return nil, ErrBadVersion
	}
	if data[5] != HashSchemeMurmur3 {
		return nil, ErrBadScheme
	}
	body := data[:len(data)-trailerBytes]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(data[len(body):]) {
		return nil, ErrChecksum
	}

	growth := binary.BigEndian.Uint32(body[8:12])
	fpRate := math.Float64frombits(binary.BigEndian.Uint64(body[12:20]))
	n := binary.BigEndian.Uint32(body[20:24])
	total := binary.BigEndian.Uint64(body[24:32])
	if growth < 2 || !validFPRate(fpRate) {
		return nil, ErrBadHeader
	}
	if n == 0 {
		return nil, ErrNoSlices
	}

	f := &Filter{fpRate: fpRate, growth: growth, slices: make([]*slice, 0, n)}
	off := HeaderBytes
	var counted uint64
	for i := uint32(0); i < n; i++ {
		s, next, err := decodeSlice(body, off)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		if i > 0 {
			prev := f.slices[i-1]
			if prev.count != prev.capacity || s.capacity != nextCapacity(prev.capacity, growth) {
				return nil, fmt.Errorf("slice %d: %w: growth chain broken", i, ErrBadSlice)
			}
		}
		f.slices = append(f.slices, s)
		counted += s.count
		off = next
	}
	if off != len(body) {
		return nil, ErrTrailingBytes
	}
	if counted != total {
		return nil, fmt.Errorf("%w: total %d != sum of slice counts %d", ErrBadHeader, total, counted)
	}
	return f, nil
}

func decodeSlice(body []byte, off int) (*slice, int, error) {
	if len(body)-off < sliceHeaderBytes {
		return nil, 0, ErrTruncated
	}
	h := body[off : off+sliceHeaderBytes]
	capacity := binary.BigEndian.Uint64(h[0:8])
	fpRate := math.Float64frombits(binary.BigEndian.Uint64(h[8:16]))
	count := binary.BigEndian.Uint64(h[16:24])
	k := binary.BigEndian.Uint32(h[24:28])
	m := binary.BigEndian.Uint64(h[28:36])
	blobLen := int(binary.BigEndian.Uint32(h[36:40]))
	off += sliceHeaderBytes

	if capacity == 0 || count > capacity || !validFPRate(fpRate) || k == 0 || m == 0 {
		return nil, 0, ErrBadSlice
	}
	if len(body)-off < blobLen {
		return nil, 0, ErrTruncated
	}
	blob := body[off : off+blobLen]
	if err := checkBlobHeader(blob, m, k); err != nil {
		return nil, 0, err
	}

	var bf bitsbloom.BloomFilter
	read, err := bf.ReadFrom(bytes.NewReader(blob))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadSlice, err)
	}
	if read != int64(blobLen) || uint64(bf.Cap()) != m || bf.K() != uint(k) || uint64(bf.BitSet().Len()) != m {
		return nil, 0, fmt.Errorf("%w: frozen parameters disagree with bit contents", ErrBadSlice)
	}
	return &slice{capacity: capacity, fpRate: fpRate, count: count, bf: &bf}, off + blobLen, nil
}

// blob prefix written by bits-and-blooms: m u64, k u64, bitset length u64.
const blobHeaderBytes = 8 + 8 + 8

// checkBlobHeader compares the blob's embedded sizes with the slice header
// before any allocation sized by them takes place.
func checkBlobHeader(blob []byte, m uint64, k uint32) error {
	if len(blob) < blobHeaderBytes {
		return fmt.Errorf("%w: blob shorter than its header", ErrBadSlice)
	}
	innerM := binary.BigEndian.Uint64(blob[0:8])
	innerK := binary.BigEndian.Uint64(blob[8:16])
	bits := binary.BigEndian.Uint64(blob[16:24])
	if innerM != m || innerK != uint64(k) || bits != m {
		return fmt.Errorf("%w: blob parameters disagree with slice header", ErrBadSlice)
	}
	words := (bits + 63) / 64
	if words > uint64(len(blob)-blobHeaderBytes)/8 || blobHeaderBytes+words*8 != uint64(len(blob)) {
		return fmt.Errorf("%w: bitset length %d does not fit blob of %d bytes", ErrBadSlice, bits, len(blob))
	}
	return nil
}

// Checksum returns the trailer checksum of serialized data without decoding it.
func Checksum(data []byte) (uint64, bool) {
	if len(data) < HeaderBytes+trailerBytes {
		return 0, false
	}
	return binary.BigEndian.Uint64(data[len(data)-trailerBytes:]), true
}
