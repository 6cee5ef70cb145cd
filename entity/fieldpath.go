/*

Package entity applies PacketEntities create/delete/delta updates against
a fixed-size entity slot array, using the field-path varint encoding over
FlatField trees built by package schema (spec §4.F).

*/
package entity

import (
	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
	"github.com/icza/cs2replay/schema"
)

// maxPathDepth mirrors schema.FieldPath's fixed width.
const maxPathDepth = 7

// pathStack is the mutable field-path cursor a Delta block's operations
// are applied against, starting at depth 1 with a single -1 component
// (spec §4.F: "a path stack initialized to [-1]").
type pathStack struct {
	comps [maxPathDepth]int32
	depth int
}

func newPathStack() pathStack {
	var s pathStack
	s.comps[0] = -1
	s.depth = 1
	return s
}

func (s *pathStack) top() int32 { return s.comps[s.depth-1] }

func (s *pathStack) setTop(v int32) { s.comps[s.depth-1] = v }

func (s *pathStack) push(v int32) error {
	if s.depth >= maxPathDepth {
		return cs2replay.Errorf(cs2replay.CorruptPath, "field path depth exceeds %d", maxPathDepth)
	}
	s.comps[s.depth] = v
	s.depth++
	return nil
}

func (s *pathStack) pop(n int) error {
	if n < 0 || n >= s.depth {
		return cs2replay.Errorf(cs2replay.CorruptPath, "field path pop(%d) from depth %d", n, s.depth)
	}
	s.depth -= n
	return nil
}

func (s *pathStack) toFieldPath() schema.FieldPath {
	var fp schema.FieldPath
	for i := range fp {
		fp[i] = -1
	}
	copy(fp[:], s.comps[:s.depth])
	return fp
}

// op is one field-path delta operation. Each op reads whatever extra data
// it needs off br and mutates the stack; Finished signals end of block.
type op struct {
	name     string
	finished bool
	apply    func(s *pathStack, br *bitread.Reader) error
}

// fieldPathOps is the prefix-coded operation table of spec §4.F: a
// two-level decode (this package's own deterministic 11-op prefix tree;
// it is not the engine's generated Huffman table and does not decode a
// real demo's field-path stream — see DESIGN.md's Open Question decision).
//
// Prefix tree (read MSB-first via sequential ReadBit calls):
//
//	0                -> Finished
//	10               -> PlusOne
//	110              -> PlusTwo
//	11100            -> PlusThree
//	11101            -> PlusFour
//	11110            -> PlusN
//	111110           -> PushNZeros
//	1111110          -> PopOnePlusOne
//	11111110         -> PopNPlusOne
//	111111110        -> XorLast
//	111111111        -> PlusNBig (32-bit delta)
var (
	opFinished = op{name: "Finished", finished: true}

	opPlusOne = op{name: "PlusOne", apply: func(s *pathStack, br *bitread.Reader) error {
		s.setTop(s.top() + 1)
		return nil
	}}

	opPlusTwo = op{name: "PlusTwo", apply: func(s *pathStack, br *bitread.Reader) error {
		s.setTop(s.top() + 2)
		return nil
	}}

	opPlusThree = op{name: "PlusThree", apply: func(s *pathStack, br *bitread.Reader) error {
		s.setTop(s.top() + 3)
		return nil
	}}

	opPlusFour = op{name: "PlusFour", apply: func(s *pathStack, br *bitread.Reader) error {
		s.setTop(s.top() + 4)
		return nil
	}}

	opPlusN = op{name: "PlusN", apply: func(s *pathStack, br *bitread.Reader) error {
		n := br.ReadUBitVarFieldPath()
		s.setTop(s.top() + int32(n) + 5)
		return nil
	}}

	opPushNZeros = op{name: "PushNZeros", apply: func(s *pathStack, br *bitread.Reader) error {
		n := br.ReadUBitVarFieldPath()
		for i := uint32(0); i < n; i++ {
			if err := s.push(0); err != nil {
				return err
			}
		}
		adj := br.ReadUBitVarFieldPath()
		s.setTop(s.top() + int32(adj))
		return nil
	}}

	opPopOnePlusOne = op{name: "PopOnePlusOne", apply: func(s *pathStack, br *bitread.Reader) error {
		if err := s.pop(1); err != nil {
			return err
		}
		s.setTop(s.top() + 1)
		return nil
	}}

	opPopNPlusOne = op{name: "PopNPlusOne", apply: func(s *pathStack, br *bitread.Reader) error {
		n := br.ReadUBitVarFieldPath()
		if err := s.pop(int(n) + 1); err != nil {
			return err
		}
		s.setTop(s.top() + 1)
		return nil
	}}

	opXorLast = op{name: "XorLast", apply: func(s *pathStack, br *bitread.Reader) error {
		n := br.ReadUBitVarFieldPath()
		s.setTop(s.top() ^ int32(n))
		return nil
	}}

	opPlusNBig = op{name: "PlusNBig", apply: func(s *pathStack, br *bitread.Reader) error {
		n := br.ReadBits(32)
		s.setTop(s.top() + int32(n))
		return nil
	}}
)

// readFieldPathOp decodes the next op using the prefix tree documented on
// fieldPathOps.
func readFieldPathOp(br *bitread.Reader) op {
	if !br.ReadBit() {
		return opFinished
	}
	if !br.ReadBit() {
		return opPlusOne
	}
	if !br.ReadBit() {
		return opPlusTwo
	}
	if !br.ReadBit() {
		if !br.ReadBit() {
			return opPlusThree
		}
		return opPlusFour
	}
	if !br.ReadBit() {
		return opPlusN
	}
	if !br.ReadBit() {
		return opPushNZeros
	}
	if !br.ReadBit() {
		return opPopOnePlusOne
	}
	if !br.ReadBit() {
		return opPopNPlusOne
	}
	if !br.ReadBit() {
		return opXorLast
	}
	return opPlusNBig
}

// decodeFieldPaths reads field-path updates from br until Finished,
// invoking fn with each resulting path.
func decodeFieldPaths(br *bitread.Reader, fn func(p schema.FieldPath) error) error {
	stack := newPathStack()
	for {
		o := readFieldPathOp(br)
		if o.finished {
			return nil
		}
		if err := o.apply(&stack, br); err != nil {
			return err
		}
		if stack.depth > maxPathDepth {
			return cs2replay.Errorf(cs2replay.CorruptPath, "field path depth exceeds %d", maxPathDepth)
		}
		if err := fn(stack.toFieldPath()); err != nil {
			return err
		}
	}
}
