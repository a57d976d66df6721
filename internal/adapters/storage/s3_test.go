package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

const testBucket = "test-bucket"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeObject struct {
	data []byte
	etag string
}

// fakeS3 is a minimal path-style S3 server: GET/PUT objects with ETag and
// If-Match handling, HEAD bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	seq     int

	headBucketStatus int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:          make(map[string]fakeObject),
		headBucketStatus: http.StatusOK,
	}
}

func (f *fakeS3) put(key, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.objects[key] = fakeObject{data: []byte(data), etag: fmt.Sprintf("%q", fmt.Sprint(f.seq))}
}

func (f *fakeS3) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+testBucket)
		key = strings.TrimPrefix(key, "/")

		if key == "" {
			// Bucket-level request (HeadBucket)
			w.WriteHeader(f.headBucketStatus)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			obj, ok := f.objects[key]
			if !ok {
				writeS3Error(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
				return
			}
			w.Header().Set("ETag", obj.etag)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(obj.data)

		case http.MethodPut:
			ifMatch := r.Header.Get("If-Match")
			if ifMatch != "" {
				obj, ok := f.objects[key]
				if !ok || obj.etag != ifMatch {
					writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed",
						"At least one of the pre-conditions you specified did not hold")
					return
				}
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			f.seq++
			obj := fakeObject{data: body, etag: fmt.Sprintf("%q", fmt.Sprint(f.seq))}
			f.objects[key] = obj

			w.Header().Set("ETag", obj.etag)
			w.WriteHeader(http.StatusOK)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>%s</Message></Error>`, code, message)
}

func newTestStore(t *testing.T, srv *httptest.Server) *S3Store {
	t.Helper()

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
		o.RetryMaxAttempts = 1
	})

	return NewS3StoreWithClient(client, testBucket, testLogger())
}

func TestS3Store_Get(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	store := newTestStore(t, srv)
	fake.put("quote_history.json", `{"quotes":[]}`)

	data, rev, err := store.Get(context.Background(), "quote_history.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"quotes":[]}`, string(data))
	assert.NotEmpty(t, rev)
}

func TestS3Store_GetMissing(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	store := newTestStore(t, srv)

	_, _, err := store.Get(context.Background(), "missing.json")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestS3Store_PutUnconditional(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	store := newTestStore(t, srv)
	ctx := context.Background()

	rev, err := store.Put(ctx, "recipients.json", []byte(`{"recipients":["a@example.com"]}`), "")
	require.NoError(t, err)
	assert.NotEmpty(t, rev)

	data, gotRev, err := store.Get(ctx, "recipients.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipients":["a@example.com"]}`, string(data))
	assert.Equal(t, rev, gotRev)
}

func TestS3Store_PutConditional(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	store := newTestStore(t, srv)
	ctx := context.Background()

	rev, err := store.Put(ctx, "quote_history.json", []byte(`{"quotes":[]}`), "")
	require.NoError(t, err)

	t.Run("current revision succeeds", func(t *testing.T) {
		next, err := store.Put(ctx, "quote_history.json", []byte(`{"quotes":[{}]}`), rev)
		require.NoError(t, err)
		assert.NotEqual(t, rev, next)
	})

	t.Run("stale revision rejected", func(t *testing.T) {
		_, err := store.Put(ctx, "quote_history.json", []byte(`{}`), rev)
		require.Error(t, err)
		assert.True(t, domain.IsStaleWrite(err))
		assert.ErrorIs(t, err, domain.ErrStaleWrite)
	})
}

func TestS3Store_HealthCheck(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	store := newTestStore(t, srv)

	assert.Equal(t, "blob-store", store.Name())
	assert.NoError(t, store.Check(context.Background()))
}

func TestS3Store_HealthCheckFailure(t *testing.T) {
	fake := newFakeS3()
	fake.headBucketStatus = http.StatusForbidden
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	store := newTestStore(t, srv)

	err := store.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), testBucket)
}
