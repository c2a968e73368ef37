package bloom

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reseal recomputes the checksum trailer after a test mutated the body.
func reseal(data []byte) []byte {
	body := data[:len(data)-trailerBytes]
	binary.BigEndian.PutUint64(data[len(body):], xxhash.Sum64(body))
	return data
}

func TestRoundTrip_ExampleScenario(t *testing.T) {
	f := NewWithParams(Params{Capacity: 2, FPRate: 0.01})
	f.Add("https://bank-secure-login.example")
	f.Add("https://airdrop-claim.example")

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	g, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, g.MightContain("https://bank-secure-login.example"))
	assert.True(t, g.MightContain("https://airdrop-claim.example"))
	assert.Equal(t, f.Stats(), g.Stats())
	assert.Equal(t, f.FPRate(), g.FPRate())
	assert.Equal(t, f.GrowthRatio(), g.GrowthRatio())
}

func TestRoundTrip_MultiSliceFidelity(t *testing.T) {
	f := NewWithParams(Params{Capacity: 16, FPRate: 0.001, Growth: 3})
	present := makeKeys(1000, "rt.test")
	for _, k := range present {
		f.Add(k)
	}
	require.Greater(t, f.Slices(), 1)

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	var g Filter
	require.NoError(t, g.UnmarshalBinary(data))
	assert.Equal(t, f.Stats(), g.Stats())
	assert.Equal(t, f.Count(), g.Count())

	for _, k := range present {
		require.True(t, g.MightContain(k), "lost %s across round trip", k)
	}
	// identical answers for keys never inserted, false positives included
	for _, k := range makeKeys(5000, "absent.test") {
		require.Equal(t, f.MightContain(k), g.MightContain(k), k)
	}

	// re-encoding the decoded filter is byte-identical
	again, err := g.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRoundTrip_ContinueAddingAfterDecode(t *testing.T) {
	f := New(4)
	for _, k := range makeKeys(4, "a.test") {
		f.Add(k)
	}
	data, err := f.MarshalBinary()
	require.NoError(t, err)
	g, err := Unmarshal(data)
	require.NoError(t, err)

	g.Add("https://late.example")
	assert.Equal(t, 2, g.Slices(), "full decoded slice must trigger growth")
	assert.True(t, g.MightContain("https://late.example"))
}

func TestMarshal_HeaderLayout(t *testing.T) {
	f := New(8)
	f.Add("https://a.example")
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, MagicV1, string(data[0:4]))
	assert.Equal(t, VersionV1, data[4])
	assert.Equal(t, HashSchemeMurmur3, data[5])
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(data[8:12]))
	assert.Equal(t, 0.01, math.Float64frombits(binary.BigEndian.Uint64(data[12:20])))
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(data[20:24]))
	assert.Equal(t, uint64(1), binary.BigEndian.Uint64(data[24:32]))

	sum, ok := Checksum(data)
	require.True(t, ok)
	assert.Equal(t, xxhash.Sum64(data[:len(data)-8]), sum)
	_, ok = Checksum(data[:10])
	assert.False(t, ok)
}

func TestUnmarshal_DetectsEverySingleBitFlip(t *testing.T) {
	f := New(4)
	f.Add("https://bank-secure-login.example")
	f.Add("https://airdrop-claim.example")
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	for i := 0; i < len(data)*8; i++ {
		corrupt := append([]byte(nil), data...)
		corrupt[i/8] ^= 1 << (i % 8)
		_, err := Unmarshal(corrupt)
		require.Error(t, err, "bit %d flip went undetected", i)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	f := New(4)
	f.Add("https://a.example")
	good, err := f.MarshalBinary()
	require.NoError(t, err)

	clone := func() []byte { return append([]byte(nil), good...) }

	tests := []struct {
		name   string
		mutate func() []byte
		want   error
	}{
		{"empty", func() []byte { return nil }, ErrTruncated},
		{"short", func() []byte { return good[:HeaderBytes] }, ErrTruncated},
		{"magic", func() []byte { d := clone(); d[0] = 'X'; return d }, ErrBadMagic},
		{"version", func() []byte { d := clone(); d[4] = 9; return reseal(d) }, ErrBadVersion},
		{"scheme", func() []byte { d := clone(); d[5] = 9; return reseal(d) }, ErrBadScheme},
		{"checksum", func() []byte { d := clone(); d[len(d)-1] ^= 0xff; return d }, ErrChecksum},
		{"growth", func() []byte { d := clone(); binary.BigEndian.PutUint32(d[8:12], 1); return reseal(d) }, ErrBadHeader},
		{"fp rate", func() []byte {
			d := clone()
			binary.BigEndian.PutUint64(d[12:20], math.Float64bits(1.5))
			return reseal(d)
		}, ErrBadHeader},
		{"no slices", func() []byte { d := clone(); binary.BigEndian.PutUint32(d[20:24], 0); return reseal(d) }, ErrNoSlices},
		{"too many slices", func() []byte { d := clone(); binary.BigEndian.PutUint32(d[20:24], 2); return reseal(d) }, ErrTruncated},
		{"total mismatch", func() []byte { d := clone(); binary.BigEndian.PutUint64(d[24:32], 7); return reseal(d) }, ErrBadHeader},
		{"count over capacity", func() []byte {
			d := clone()
			binary.BigEndian.PutUint64(d[HeaderBytes+16:HeaderBytes+24], 99)
			return reseal(d)
		}, ErrBadSlice},
		{"k disagrees with bits", func() []byte {
			d := clone()
			binary.BigEndian.PutUint32(d[HeaderBytes+24:HeaderBytes+28], 3)
			return reseal(d)
		}, ErrBadSlice},
		{"bitset length oversized", func() []byte {
			d := clone()
			blob := HeaderBytes + sliceHeaderBytes
			binary.BigEndian.PutUint64(d[blob+16:blob+24], 1<<40)
			return reseal(d)
		}, ErrBadSlice},
		{"blob m disagrees with header", func() []byte {
			d := clone()
			blob := HeaderBytes + sliceHeaderBytes
			binary.BigEndian.PutUint64(d[blob:blob+8], 1<<40)
			return reseal(d)
		}, ErrBadSlice},
		{"m and bitset length both oversized", func() []byte {
			d := clone()
			blob := HeaderBytes + sliceHeaderBytes
			binary.BigEndian.PutUint64(d[HeaderBytes+28:HeaderBytes+36], 1<<40)
			binary.BigEndian.PutUint64(d[blob:blob+8], 1<<40)
			binary.BigEndian.PutUint64(d[blob+16:blob+24], 1<<40)
			return reseal(d)
		}, ErrBadSlice},
		{"trailing bytes", func() []byte {
			d := clone()
			body := append(d[:len(d)-trailerBytes:len(d)-trailerBytes], 0, 0, 0)
			return binary.BigEndian.AppendUint64(body, xxhash.Sum64(body))
		}, ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.mutate())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnmarshalBinary_LeavesFilterOnError(t *testing.T) {
	f := New(4)
	f.Add("https://a.example")
	err := f.UnmarshalBinary([]byte("garbage"))
	require.Error(t, err)
	assert.True(t, f.MightContain("https://a.example"))
}
