// Package fetch resolves image references to raw bytes.
//
// A reference is either an http(s) URL, an s3://bucket/key object, or a
// local file path. The caller decodes the bytes; this package only moves
// them. Remote fetches can be paced by a shared rate limiter so a burst of
// search traffic does not hammer an upstream image host.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"golang.org/x/time/rate"
)

// ErrFetch is returned (wrapped) when a reference cannot be resolved.
//
// Callers should test with errors.Is.
var ErrFetch = errors.New("unfetchable image reference")

// DefaultMaxBytes caps the size of a fetched image.
const DefaultMaxBytes = 32 << 20

// Fetcher resolves references. The zero value is not usable; construct with
// New. A Fetcher is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	s3         *minio.Client
	limiter    *rate.Limiter
	maxBytes   int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for http(s) references.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithS3Client enables s3://bucket/key references through the given client.
func WithS3Client(c *minio.Client) Option {
	return func(f *Fetcher) {
		f.s3 = c
	}
}

// WithRateLimit paces remote fetches to r requests per second with the
// given burst. Local file reads are never limited.
func WithRateLimit(r float64, burst int) Option {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithMaxBytes overrides the fetched image size cap.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves ref to raw bytes. Failures satisfy
// errors.Is(err, ErrFetch).
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// No scheme (or a Windows drive letter): local path.
		return f.fetchFile(ref)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, ref)
	case "s3":
		return f.fetchS3(ctx, u)
	case "file":
		return f.fetchFile(u.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrFetch, u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrFetch, ref, resp.Status)
	}
	return f.readAll(resp.Body)
}

func (f *Fetcher) fetchS3(ctx context.Context, u *url.URL) ([]byte, error) {
	if f.s3 == nil {
		return nil, fmt.Errorf("%w: no s3 client configured", ErrFetch)
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	obj, err := f.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: s3://%s/%s: %v", ErrFetch, bucket, key, err)
	}
	defer obj.Close()
	return f.readAll(obj)
}

func (f *Fetcher) fetchFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetch, path, f.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return data, nil
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return nil
}

func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrFetch, f.maxBytes)
	}
	return data, nil
}
