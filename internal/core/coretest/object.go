package coretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/markdave123-py/Memora/internal/core"
)

// ObjectStore is an in-memory core.ObjectClient.
type ObjectStore struct {
	Mu      sync.Mutex
	Objects map[string][]byte // keyed by bucket/key

	UploadErr error
	DeleteErr error
}

var _ core.ObjectClient = (*ObjectStore)(nil)

func NewObjectStore() *ObjectStore {
	return &ObjectStore{Objects: make(map[string][]byte)}
}

func (o *ObjectStore) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	if o.UploadErr != nil {
		return "", o.UploadErr
	}
	o.Mu.Lock()
	defer o.Mu.Unlock()
	o.Objects[bucket+"/"+key] = append([]byte(nil), data...)
	return fmt.Sprintf("https://%s.s3.test.local/%s", bucket, key), nil
}

func (o *ObjectStore) DeleteFile(_ context.Context, bucket, key string) error {
	if o.DeleteErr != nil {
		return o.DeleteErr
	}
	o.Mu.Lock()
	defer o.Mu.Unlock()
	delete(o.Objects, bucket+"/"+key)
	return nil
}

func (o *ObjectStore) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	o.Mu.Lock()
	defer o.Mu.Unlock()
	data, ok := o.Objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return append([]byte(nil), data...), nil
}

func (o *ObjectStore) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, err := o.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
