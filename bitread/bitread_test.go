package bitread

import "testing"

func TestReadBitsLSBFirst(t *testing.T) {
	// 0b1011_0010 -> low 4 bits then high 4 bits, LSB first.
	r := New([]byte{0xb2})
	if got := r.ReadBits(4); got != 0x2 {
		t.Errorf("low nibble = %#x, want 0x2", got)
	}
	if got := r.ReadBits(4); got != 0xb {
		t.Errorf("high nibble = %#x, want 0xb", got)
	}
	if !r.EOF() {
		t.Error("EOF falsely not reported")
	}
}

func TestReadBitsSpanningBytes(t *testing.T) {
	r := New([]byte{0xff, 0x01})
	if got := r.ReadBits(9); got != 0x1ff {
		t.Errorf("got %#x, want 0x1ff", got)
	}
}

func TestReadBitsTruncated(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on truncated read")
		}
	}()
	r := New([]byte{0x01})
	r.ReadBits(32)
}

func TestReadVarU32(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x96, 0x01}, 150},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff},
	}
	for _, c := range cases {
		r := New(c.in)
		if got := r.ReadVarU32(); got != c.want {
			t.Errorf("ReadVarU32(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestReadVarI32ZigZag(t *testing.T) {
	cases := []struct {
		in   []byte
		want int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, -1},
		{[]byte{0x02}, 1},
		{[]byte{0x03}, -2},
	}
	for _, c := range cases {
		r := New(c.in)
		if got := r.ReadVarI32(); got != c.want {
			t.Errorf("ReadVarI32(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestReadUBitVar(t *testing.T) {
	// prefix 00 -> 4 bits: value 0xA in next 4 bits.
	r := New([]byte{0x00 | (0xA << 2)})
	if got := r.ReadUBitVar(); got != 0xA {
		t.Errorf("got %#x, want 0xA", got)
	}
}

func TestReadUBitVarFieldPath(t *testing.T) {
	// prefix '0' -> 2 bits.
	r := New([]byte{0x00 | (0x3 << 1)})
	if got := r.ReadUBitVarFieldPath(); got != 0x3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestReadNormalRoundTrip(t *testing.T) {
	// sign=0, frac = max (2047) -> value should be close to 1.0
	r := New([]byte{0xfe, 0x0f})
	v := r.ReadNormal()
	if v < 0.99 || v > 1.0 {
		t.Errorf("got %v, want ~1.0", v)
	}
}

func TestReadQuantizedFloatRange(t *testing.T) {
	// 8 bits, full scale -> max raw (255) maps to high.
	r := New([]byte{0xff})
	v := r.ReadQuantizedFloat(8, 0, 100)
	if v != 100 {
		t.Errorf("got %v, want 100", v)
	}
}

func TestReadStringNullTerminated(t *testing.T) {
	r := New([]byte{'h', 'i', 0, 'x'})
	if got := r.ReadString(16); got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}
