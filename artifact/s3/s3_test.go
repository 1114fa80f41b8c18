package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decalflow/artifact"
)

type fakeObject struct {
	data        []byte
	contentType string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	failPut error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string]fakeObject{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = fakeObject{data: b, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Prefix)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, aws.ToString(in.Bucket)+"/"))
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func newTestStore(t *testing.T, fake *fakeS3) *Store {
	t.Helper()
	store, err := NewStore(func(o *Options) {
		o.Bucket = "decals"
		o.Prefix = "dev/"
		o.Client = fake
	})
	require.NoError(t, err)
	return store
}

func TestNewStoreRequiresBucket(t *testing.T) {
	_, err := NewStore()
	assert.Error(t, err)

	store, err := NewStore(func(o *Options) {
		o.Bucket = "decals"
		o.Endpoint = "http://127.0.0.1:9000"
		o.AccessKey = "minio"
		o.SecretKey = "minio123"
		o.UsePathStyle = true
	})
	require.NoError(t, err)
	assert.NotNil(t, store.client)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newTestStore(t, fake)

	uri, err := store.Save(ctx, "designs", "d1.png", []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "s3://decals/dev/designs/d1.png", uri)
	assert.Equal(t, "image/png", fake.objects["decals/dev/designs/d1.png"].contentType)

	data, err := store.Get(ctx, "designs", "d1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, _ = store.Save(ctx, "designs", "d0.wav", []byte{4}, "audio/wav")
	_, _ = store.Save(ctx, "designs/nested", "x", []byte{5}, "")
	ids, err := store.List(ctx, "designs")
	require.NoError(t, err)
	assert.Equal(t, []string{"d0.wav", "d1.png"}, ids)

	require.NoError(t, store.Delete(ctx, "designs", "d1.png"))
	_, err = store.Get(ctx, "designs", "d1.png")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "designs", "d1.png"), artifact.ErrNotFound)
}

func TestStoreWrapsErrors(t *testing.T) {
	fake := newFakeS3()
	fake.failPut = errors.New("access denied")
	store := newTestStore(t, fake)

	_, err := store.Save(context.Background(), "designs", "d1", nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev/designs/d1")
	assert.ErrorIs(t, err, fake.failPut)
}
