package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"primerid/api/client/staging"
	"primerid/api/models/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucket is a fake object store answering signed PUTs.
type bucket struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string

	hits     int32
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	deny     map[string]bool
}

func newBucket() *bucket {
	return &bucket{objects: map[string]string{}, types: map[string]string{}, deny: map[string]bool{}}
}

func (b *bucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&b.hits, 1)
	n := atomic.AddInt32(&b.inFlight, 1)
	defer atomic.AddInt32(&b.inFlight, -1)
	for {
		m := atomic.LoadInt32(&b.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&b.maxSeen, m, n) {
			break
		}
	}

	body, _ := io.ReadAll(r.Body)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-r.Context().Done():
			return
		}
	}
	if r.Method != http.MethodPut || b.deny[r.URL.Path] {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	b.mu.Lock()
	b.objects[r.URL.Path] = string(body)
	b.types[r.URL.Path] = r.Header.Get("Content-Type")
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func stage(n int) ([]staging.File, []string) {
	var files []staging.File
	var names []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("lib%d_R1.fastq.gz", i)
		files = append(files, staging.FromBytes(name, "application/gzip", []byte(strings.Repeat("A", 1000+i))))
		names = append(names, name)
	}
	return files, names
}

func sign(base string, names ...string) []jobs.SignedUpload {
	out := make([]jobs.SignedUpload, 0, len(names))
	for _, n := range names {
		out = append(out, jobs.SignedUpload{Upload: jobs.Upload{FileName: n}, SignedURL: base + "/" + n})
	}
	return out
}

func TestUploadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("should upload every file with its content type", func(t *testing.T) {
		b := newBucket()
		srv := httptest.NewServer(b)
		defer srv.Close()

		files, names := stage(3)
		var mu sync.Mutex
		last := map[string]int{}

		u := New()
		u.OnProgress = func(name string, pct int) {
			mu.Lock()
			defer mu.Unlock()
			assert.GreaterOrEqual(t, pct, last[name], "progress never goes back")
			last[name] = pct
		}

		require.True(t, u.UploadAll(ctx, files, sign(srv.URL, names...)))
		for i, n := range names {
			assert.Equal(t, Done, u.Status(n).State)
			assert.Equal(t, 100, last[n])
			b.mu.Lock()
			assert.Equal(t, "application/gzip", b.types["/"+n])
			assert.Len(t, b.objects["/"+n], 1000+i)
			b.mu.Unlock()
		}
	})

	t.Run("should bound concurrent PUTs", func(t *testing.T) {
		b := newBucket()
		b.delay = 30 * time.Millisecond
		srv := httptest.NewServer(b)
		defer srv.Close()

		files, names := stage(6)
		u := New()
		u.BatchSize = 2

		require.True(t, u.UploadAll(ctx, files, sign(srv.URL, names...)))
		assert.LessOrEqual(t, atomic.LoadInt32(&b.maxSeen), int32(2))
		assert.Equal(t, int32(6), atomic.LoadInt32(&b.hits))
	})

	t.Run("should fail when any PUT is refused but finish the rest", func(t *testing.T) {
		for _, batch := range []int{1, 4} {
			b := newBucket()
			srv := httptest.NewServer(b)

			files, names := stage(3)
			b.deny["/"+names[1]] = true

			u := New()
			u.BatchSize = batch
			assert.False(t, u.UploadAll(ctx, files, sign(srv.URL, names...)), "batch %d", batch)

			assert.Equal(t, Done, u.Status(names[0]).State)
			assert.Equal(t, Failed, u.Status(names[1]).State)
			assert.Contains(t, u.Status(names[1]).Err.Error(), "403")
			assert.Equal(t, Done, u.Status(names[2]).State)
			srv.Close()
		}
	})

	t.Run("should refuse a signed URL for a file that is not staged", func(t *testing.T) {
		b := newBucket()
		srv := httptest.NewServer(b)
		defer srv.Close()

		files, names := stage(1)
		u := New()

		assert.False(t, u.UploadAll(ctx, files, sign(srv.URL, names[0], "ghost_R2.fastq.gz")))
		assert.Equal(t, Failed, u.Status("ghost_R2.fastq.gz").State)
		assert.Equal(t, int32(0), atomic.LoadInt32(&b.hits))
	})

	t.Run("should give up on a PUT that outlives its timeout", func(t *testing.T) {
		b := newBucket()
		b.delay = 2 * time.Second
		srv := httptest.NewServer(b)
		defer srv.Close()

		files, names := stage(1)
		u := New()
		u.Timeout = 50 * time.Millisecond

		start := time.Now()
		assert.False(t, u.UploadAll(ctx, files, sign(srv.URL, names...)))
		assert.Less(t, time.Since(start), time.Second)
		assert.ErrorIs(t, u.Status(names[0]).Err, context.DeadlineExceeded)
	})

	t.Run("should stop when the caller cancels", func(t *testing.T) {
		b := newBucket()
		b.delay = 2 * time.Second
		srv := httptest.NewServer(b)
		defer srv.Close()

		files, names := stage(2)
		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(50*time.Millisecond, cancel)

		u := New()
		assert.False(t, u.UploadAll(cctx, files, sign(srv.URL, names...)))
		for _, n := range names {
			assert.ErrorIs(t, u.Status(n).Err, context.Canceled)
		}
	})

	t.Run("should keep the newest run's status when an older run finishes late", func(t *testing.T) {
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			started <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer slow.Close()
		fast := httptest.NewServer(newBucket())
		defer fast.Close()

		files, names := stage(1)
		u := New()

		first := make(chan bool, 1)
		go func() { first <- u.UploadAll(ctx, files, sign(slow.URL, names...)) }()
		<-started

		require.True(t, u.UploadAll(ctx, files, sign(fast.URL, names...)))
		close(release)
		assert.False(t, <-first)

		st := u.Status(names[0])
		assert.Equal(t, Done, st.State)
		assert.Equal(t, 100, st.Progress)
		assert.NoError(t, st.Err)
	})
}
