package grading

import (
	"errors"
	"fmt"
	"io"

	"github.com/t3m8ch/checkrunner/internal/model"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// SandboxReference is the on-disk reference format of the sandbox engine: a
// msgpack map, or a msgpack array of such maps.
type SandboxReference struct {
	RefName string `msgpack:"name"`
	Payload []byte `msgpack:"payload"`
}

func (r *SandboxReference) Name() string {
	return r.RefName
}

var ErrEmptyArtifact = errors.New("empty reference artifact")

func DecodeReferences(r io.Reader) (model.Loaded, error) {
	dec := msgpack.NewDecoder(r)
	code, err := dec.PeekCode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Loaded{}, ErrEmptyArtifact
		}
		return model.Loaded{}, err
	}

	if isArrayCode(code) {
		var refs []*SandboxReference
		if err := dec.Decode(&refs); err != nil {
			return model.Loaded{}, fmt.Errorf("decode reference list: %w", err)
		}
		out := make([]model.Reference, 0, len(refs))
		for i, ref := range refs {
			if ref == nil {
				return model.Loaded{}, fmt.Errorf("reference list entry %d is nil", i)
			}
			out = append(out, ref)
		}
		return model.Many(out), nil
	}

	if !isMapCode(code) {
		return model.Loaded{}, fmt.Errorf("unexpected msgpack code 0x%02x for reference artifact", code)
	}
	var ref SandboxReference
	if err := dec.Decode(&ref); err != nil {
		return model.Loaded{}, fmt.Errorf("decode reference: %w", err)
	}
	return model.Single(&ref), nil
}

func EncodeReference(w io.Writer, ref *SandboxReference) error {
	return msgpack.NewEncoder(w).Encode(ref)
}

func EncodeReferences(w io.Writer, refs []*SandboxReference) error {
	return msgpack.NewEncoder(w).Encode(refs)
}

func isArrayCode(c byte) bool {
	return msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32
}

func isMapCode(c byte) bool {
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}
