package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeBucket struct {
	objects   map[string][]byte
	puts      []*s3.PutObjectInput
	deletes   []string
	putErr    error
	deleteErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (f *fakeBucket) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	f.deletes = append(f.deletes, key)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func newTestPublisher(t *testing.T, bucket *fakeBucket) *Publisher {
	t.Helper()
	publisher, err := NewPublisher(bucket, PublisherConfig{Bucket: "notes-audio", PublicURL: "https://cdn.example.com/"}, nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	return publisher
}

func TestPublishUploadsAndReturnsPublicURL(t *testing.T) {
	bucket := newFakeBucket()
	publisher := newTestPublisher(t, bucket)

	url, err := publisher.Publish(context.Background(), []byte("mp3"), "topic-1.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if url != "https://cdn.example.com/topic-1.mp3" {
		t.Fatalf("url = %q, want https://cdn.example.com/topic-1.mp3", url)
	}
	if string(bucket.objects["topic-1.mp3"]) != "mp3" {
		t.Fatalf("stored object = %q, want mp3", bucket.objects["topic-1.mp3"])
	}
	put := bucket.puts[0]
	if aws.ToString(put.Bucket) != "notes-audio" {
		t.Fatalf("bucket = %q, want notes-audio", aws.ToString(put.Bucket))
	}
	if aws.ToString(put.ContentType) != "audio/mpeg" {
		t.Fatalf("content type = %q, want audio/mpeg", aws.ToString(put.ContentType))
	}
	if aws.ToString(put.ContentDisposition) != "inline" {
		t.Fatalf("content disposition = %q, want inline", aws.ToString(put.ContentDisposition))
	}
	if aws.ToInt64(put.ContentLength) != 3 {
		t.Fatalf("content length = %d, want 3", aws.ToInt64(put.ContentLength))
	}
}

func TestPublishOverwritesSameKey(t *testing.T) {
	bucket := newFakeBucket()
	publisher := newTestPublisher(t, bucket)

	first, err := publisher.Publish(context.Background(), []byte("old"), "topic-1.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("publish first: %v", err)
	}
	second, err := publisher.Publish(context.Background(), []byte("new"), "topic-1.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("publish second: %v", err)
	}
	if first != second {
		t.Fatalf("urls differ: %q vs %q", first, second)
	}
	if string(bucket.objects["topic-1.mp3"]) != "new" {
		t.Fatalf("stored object = %q, want new", bucket.objects["topic-1.mp3"])
	}
}

func TestPublishEscapesKey(t *testing.T) {
	publisher := newTestPublisher(t, newFakeBucket())
	tests := []struct {
		key  string
		want string
	}{
		{key: "notatka 1/ż.mp3", want: "https://cdn.example.com/notatka%201%2F%C5%BC.mp3"},
		{key: "a+b&c=d:e@f$g.mp3", want: "https://cdn.example.com/a%2Bb%26c%3Dd%3Ae%40f%24g.mp3"},
		{key: "q?x#y.mp3", want: "https://cdn.example.com/q%3Fx%23y.mp3"},
	}
	for _, tc := range tests {
		if got := publisher.URL(tc.key); got != tc.want {
			t.Fatalf("URL(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestPublishWrapsBucketError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.putErr = errors.New("network down")
	publisher := newTestPublisher(t, bucket)

	if _, err := publisher.Publish(context.Background(), []byte("mp3"), "topic-1.mp3", "audio/mpeg"); !errors.Is(err, bucket.putErr) {
		t.Fatalf("publish err = %v, want wrapped bucket error", err)
	}
}

func TestRemoveMissingObjectIsNotAnError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "api code NoSuchKey", err: &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}},
		{name: "api code NotFound", err: &smithy.GenericAPIError{Code: "NotFound"}},
		{name: "typed NoSuchKey", err: &types.NoSuchKey{}},
		{name: "sentinel", err: ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bucket := newFakeBucket()
			bucket.deleteErr = tc.err
			publisher := newTestPublisher(t, bucket)

			if err := publisher.Remove(context.Background(), "missing.mp3"); err != nil {
				t.Fatalf("remove err = %v, want nil", err)
			}
			if len(bucket.deletes) != 1 || bucket.deletes[0] != "missing.mp3" {
				t.Fatalf("deletes = %v, want [missing.mp3]", bucket.deletes)
			}
		})
	}
}

func TestRemoveReportsOtherErrors(t *testing.T) {
	bucket := newFakeBucket()
	bucket.deleteErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	publisher := newTestPublisher(t, bucket)

	if err := publisher.Remove(context.Background(), "topic-1.mp3"); err == nil {
		t.Fatal("expected access denied to be reported")
	}
}

func TestRemoveDeletesObject(t *testing.T) {
	bucket := newFakeBucket()
	publisher := newTestPublisher(t, bucket)
	if _, err := publisher.Publish(context.Background(), []byte("mp3"), "topic-1.mp3", "audio/mpeg"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := publisher.Remove(context.Background(), "topic-1.mp3"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := bucket.objects["topic-1.mp3"]; ok {
		t.Fatal("object still present after remove")
	}
}

func TestNewPublisherValidation(t *testing.T) {
	tests := []struct {
		name   string
		client Bucket
		cfg    PublisherConfig
	}{
		{name: "nil client", client: nil, cfg: PublisherConfig{Bucket: "b", PublicURL: "https://x"}},
		{name: "missing bucket", client: newFakeBucket(), cfg: PublisherConfig{PublicURL: "https://x"}},
		{name: "missing public url", client: newFakeBucket(), cfg: PublisherConfig{Bucket: "b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewPublisher(tc.client, tc.cfg, nil); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNewS3ClientAppliesEndpoint(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", t.TempDir()+"/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", t.TempDir()+"/credentials")

	client, err := NewS3Client(context.Background(), ClientConfig{
		Endpoint:     "https://account.r2.cloudflarestorage.com",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
		MaxAttempts:  2,
	})
	if err != nil {
		t.Fatalf("new s3 client: %v", err)
	}
	options := client.Options()
	if aws.ToString(options.BaseEndpoint) != "https://account.r2.cloudflarestorage.com" {
		t.Fatalf("endpoint = %q", aws.ToString(options.BaseEndpoint))
	}
	if options.Region != "auto" {
		t.Fatalf("region = %q, want auto", options.Region)
	}
	if !options.UsePathStyle {
		t.Fatal("expected path style addressing")
	}
}

func TestNewS3ClientRequiresCredentials(t *testing.T) {
	if _, err := NewS3Client(context.Background(), ClientConfig{AccessKey: "key"}); err == nil {
		t.Fatal("expected error without secret key")
	}
}
