package grading

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecodeReferences_Single(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeReference(&buf, &SandboxReference{RefName: "fib", Payload: []byte{1, 2}}))

	loaded, err := DecodeReferences(&buf)
	require.NoError(t, err)
	require.False(t, loaded.IsList())

	refs := loaded.Flatten()
	require.Len(t, refs, 1)
	require.Equal(t, "fib", refs[0].Name())
	require.Equal(t, []byte{1, 2}, refs[0].(*SandboxReference).Payload)
}

func TestDecodeReferences_List(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeReferences(&buf, []*SandboxReference{
		{RefName: "part-1"},
		{RefName: "part-2"},
		{RefName: "part-3"},
	}))

	loaded, err := DecodeReferences(&buf)
	require.NoError(t, err)
	require.True(t, loaded.IsList())

	var names []string
	for _, ref := range loaded.Flatten() {
		names = append(names, ref.Name())
	}
	require.Equal(t, []string{"part-1", "part-2", "part-3"}, names)
}

func TestDecodeReferences_Corrupt(t *testing.T) {
	t.Parallel()

	_, err := DecodeReferences(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrEmptyArtifact)

	data, err := msgpack.Marshal("not a reference")
	require.NoError(t, err)
	_, err = DecodeReferences(bytes.NewReader(data))
	require.ErrorContains(t, err, "unexpected msgpack code")

	_, err = DecodeReferences(bytes.NewReader([]byte{0x92, 0x81}))
	require.Error(t, err)
}
