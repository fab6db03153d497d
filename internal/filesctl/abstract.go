package filesctl

import (
	"context"
	"io"
)

type Manager interface {
	PutFile(ctx context.Context, bucket string, name string, r io.Reader, size int64) error
	DownloadFile(ctx context.Context, bucket string, name string, w io.Writer) (int64, error)
}
