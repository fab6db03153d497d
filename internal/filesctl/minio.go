package filesctl

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

type MinioManager struct {
	client *minio.Client
}

func NewMinioManager(client *minio.Client) *MinioManager {
	return &MinioManager{client: client}
}

func (m *MinioManager) PutFile(ctx context.Context, bucket string, name string, r io.Reader, size int64) error {
	_, err := m.client.PutObject(ctx, bucket, name, r, size, minio.PutObjectOptions{})
	return err
}

func (m *MinioManager) DownloadFile(ctx context.Context, bucket string, name string, w io.Writer) (int64, error) {
	object, err := m.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return 0, err
	}
	defer object.Close()

	return io.Copy(w, object)
}
