package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"docchat-backend/internal/shared/storage/object"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	delErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return nil, f.delErr
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "docs/", "")

	key, size, mime, err := store.Save(ctx, "user-1", "report.pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != 13 || mime != "application/pdf" {
		t.Fatalf("unexpected size=%d mime=%s", size, mime)
	}
	if _, ok := fake.objects["docs/"+key]; !ok {
		t.Fatalf("expected object under prefixed key, have %v", fake.objects)
	}
	if fake.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 encryption by default")
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = store.Exists(ctx, key)
	if err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v", ok, err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveWithKeyUsesKMS(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "", "kms-key")

	if _, err := store.SaveWithKey(context.Background(), "u/a.pdf.extracted.txt", "text/plain", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	in := fake.puts[0]
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected kms encryption, got %v %v", in.ServerSideEncryption, aws.ToString(in.SSEKMSKeyId))
	}
}

func TestDeleteSurfacesErrors(t *testing.T) {
	fake := newFakeS3()
	fake.delErr = errors.New("access denied")
	store := NewWithClient(fake, "bucket", "", "")
	if err := store.Delete(context.Background(), "k"); err == nil {
		t.Fatal("expected delete error")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), "us-east-1", "", "", ""); err == nil {
		t.Fatal("expected bucket error")
	}
}
