package demo

import (
	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/wire"
)

// Demo is the fully-open handle returned by Open: the fixed file header
// plus the Parser that replays everything after it.
type Demo struct {
	Header wire.FileHeader
	Parser *Parser

	body []byte // remaining bytes after the file header frame, ready for Run
}

// Open validates data's magic stamp, decodes its leading CDemoFileHeader
// frame, and returns a Demo ready to Run (spec §4.I, §5).
func Open(data []byte) (*Demo, error) {
	rest, err := wire.ValidateStamp(data)
	if err != nil {
		return nil, err
	}

	r := wire.NewReader(rest)
	f, ok, err := r.Next()
	if err != nil {
		return nil, err
	}
	if !ok || f.Kind != wire.KindFileHeader {
		return nil, cs2replay.Errorf(cs2replay.UnsupportedFormat, "demo is missing its leading file header frame")
	}

	hdr, err := wire.ParseFileHeader(f.Payload)
	if err != nil {
		return nil, err
	}

	return &Demo{
		Header: hdr,
		Parser: NewParser(),
		body:   r.Remaining(),
	}, nil
}

// Run replays the rest of the demo through d.Parser.
func (d *Demo) Run(h Handlers) error {
	return d.Parser.Run(d.body, h)
}
