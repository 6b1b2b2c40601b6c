package dataset

import "github.com/dmitrymomot/devicedetect/pkg/source"

func (ds *Dataset) loadString(off int32) (string, error) {
	var s string
	err := ds.read(secStrings, off, func(r *source.Reader) error {
		s = string(r.Bytes(int(r.Uint16())))
		return nil
	})
	return s, err
}

func skipString(r *source.Reader) {
	r.Skip(int(r.Uint16()))
}

func skipProfile(r *source.Reader) {
	r.Skip(5)
	r.Skip(4 * int(r.Int32()))
}

func skipSignature(r *source.Reader) {
	r.Skip(4)
	profiles := int(r.Byte())
	nodes := int(r.Byte())
	r.Skip(4 * (profiles + nodes))
}

func skipNode(r *source.Reader) {
	r.Skip(10)
	children := int(r.Uint16())
	signatures := int(r.Int32())
	r.Skip(4 * (children + signatures))
}
