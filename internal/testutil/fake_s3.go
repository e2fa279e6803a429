package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// FakeS3 is an in-memory bucket implementing the List/Get/Put subset of the S3 client.
type FakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	lists   int

	// PageSize caps the keys returned per ListObjectsV2 call (0 means unlimited)
	PageSize int

	// ListErr, GetErr and PutErr are returned by the matching calls when set
	ListErr error
	GetErr  error
	PutErr  error
}

// NewFakeS3 creates an empty bucket.
func NewFakeS3() *FakeS3 {
	return &FakeS3{objects: make(map[string][]byte)}
}

// PutRaw stores data under key without counting it as a put.
func (f *FakeS3) PutRaw(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

// Object returns the data stored under key.
func (f *FakeS3) Object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

// Keys returns all stored keys in lexical order.
func (f *FakeS3) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedKeys("")
}

// ListCount returns the number of ListObjectsV2 calls, one per listed page.
func (f *FakeS3) ListCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// PutCount returns the number of PutObject calls that succeeded.
func (f *FakeS3) PutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *FakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	f.lists++

	// The continuation token is the last key of the previous page.
	after := aws.ToString(in.ContinuationToken)
	out := &s3.ListObjectsV2Output{}
	for _, key := range f.sortedKeys(aws.ToString(in.Prefix)) {
		if after != "" && key <= after {
			continue
		}
		if f.PageSize > 0 && len(out.Contents) == f.PageSize {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = out.Contents[len(out.Contents)-1].Key
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

func (f *FakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *FakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutErr != nil {
		return nil, f.PutErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *FakeS3) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
