// Package logo uploads organization logos to an S3-compatible bucket.
package logo

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ketankauntia/gsoc-orgs/internal/fetcher"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/resilience"
)

// Extensions are tried in this order when looking for a local logo.
var Extensions = []string{".webp", ".png", ".jpg", ".jpeg", ".gif", ".svg"}

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ContentType returns the MIME type for a file name. Unknown extensions
// are treated as PNG.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "image/png"
}

// PutObjectAPI is the subset of *s3.Client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Recorder persists uploaded logo locations. store.Store satisfies it.
type Recorder interface {
	SetLogo(ctx context.Context, slug, filename, url string) error
}

// Options tunes an Uploader.
type Options struct {
	Bucket string
	// PublicURL prefixes object keys in recorded URLs. When empty the
	// bucket endpoint is used.
	PublicURL string
	Endpoint  string
	Dir       string
	Force     bool
	DryRun    bool
	// Concurrency bounds parallel uploads. Default: 4.
	Concurrency int
	Retry       resilience.RetryConfig
}

// Outcome of one organization.
type Outcome string

const (
	OutcomeUploaded Outcome = "uploaded"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeMissing  Outcome = "missing"
	OutcomeFailed   Outcome = "failed"
	OutcomeDryRun   Outcome = "dry_run"
)

// Result is the upload result of one organization.
type Result struct {
	Slug    string  `json:"slug"`
	Outcome Outcome `json:"outcome"`
	Key     string  `json:"key,omitempty"`
	URL     string  `json:"url,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Summary tallies results by outcome.
type Summary struct {
	Results []Result        `json:"results"`
	Counts  map[Outcome]int `json:"counts"`
}

// Uploader moves logos from a local directory, or their source URL, into
// the bucket and records where they went.
type Uploader struct {
	s3      PutObjectAPI
	fetcher fetcher.Fetcher
	rec     Recorder
	opts    Options
}

// NewUploader creates an Uploader. f may be nil, in which case missing
// local files are not downloaded.
func NewUploader(client PutObjectAPI, f fetcher.Fetcher, rec Recorder, opts Options) *Uploader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Dir == "" {
		opts.Dir = "logos"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
		opts.Retry.OnRetry = resilience.RetryLogger("r2", "put_object")
	}
	return &Uploader{s3: client, fetcher: f, rec: rec, opts: opts}
}

// Upload processes every organization. Per-organization failures are
// reported in the summary; only cancellation returns an error.
func (u *Uploader) Upload(ctx context.Context, orgs []model.Organization) (*Summary, error) {
	results := make([]Result, len(orgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Concurrency)
	for i := range orgs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = u.uploadOne(gctx, orgs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "logo: upload cancelled")
	}

	s := &Summary{Results: results, Counts: map[Outcome]int{}}
	for _, r := range results {
		s.Counts[r.Outcome]++
	}
	zap.L().Info("logo upload complete",
		zap.Int("uploaded", s.Counts[OutcomeUploaded]),
		zap.Int("skipped", s.Counts[OutcomeSkipped]),
		zap.Int("missing", s.Counts[OutcomeMissing]),
		zap.Int("failed", s.Counts[OutcomeFailed]),
		zap.Bool("dry_run", u.opts.DryRun),
	)
	return s, nil
}

func (u *Uploader) uploadOne(ctx context.Context, org model.Organization) Result {
	res := Result{Slug: org.Slug}
	if org.Slug == "" {
		res.Outcome = OutcomeSkipped
		res.Error = "no slug"
		return res
	}
	if org.LogoR2URL != "" && !u.opts.Force {
		res.Outcome = OutcomeSkipped
		res.URL = org.LogoR2URL
		return res
	}

	local, ok := FindLocal(u.opts.Dir, org.Slug)
	if !ok {
		if org.LogoURL == "" || u.fetcher == nil {
			res.Outcome = OutcomeMissing
			return res
		}
		local = filepath.Join(u.opts.Dir, org.Slug+extFromURL(org.LogoURL))
		if u.opts.DryRun {
			res.Outcome = OutcomeDryRun
			res.Key = filepath.Base(local)
			res.URL = u.PublicURL(res.Key)
			return res
		}
		if _, err := u.fetcher.DownloadToFile(ctx, org.LogoURL, local); err != nil {
			zap.L().Warn("logo download failed", zap.String("slug", org.Slug), zap.Error(err))
			res.Outcome = OutcomeMissing
			res.Error = err.Error()
			return res
		}
	}

	res.Key = filepath.Base(local)
	res.URL = u.PublicURL(res.Key)
	if u.opts.DryRun {
		res.Outcome = OutcomeDryRun
		return res
	}

	if err := u.put(ctx, local, res.Key); err != nil {
		zap.L().Error("logo upload failed", zap.String("slug", org.Slug), zap.Error(err))
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}
	if err := u.rec.SetLogo(ctx, org.Slug, res.Key, res.URL); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}
	zap.L().Debug("logo uploaded", zap.String("slug", org.Slug), zap.String("url", res.URL))
	res.Outcome = OutcomeUploaded
	return res
}

func (u *Uploader) put(ctx context.Context, local, key string) error {
	return resilience.Do(ctx, u.opts.Retry, func(ctx context.Context) error {
		f, err := os.Open(local)
		if err != nil {
			return eris.Wrap(err, "logo: open")
		}
		defer f.Close() //nolint:errcheck

		_, err = u.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.opts.Bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(ContentType(key)),
		})
		if err != nil {
			return resilience.NewTransientError(eris.Wrapf(err, "logo: put %s", key), 0)
		}
		return nil
	})
}

// PublicURL is the URL an uploaded key is served from.
func (u *Uploader) PublicURL(key string) string {
	if u.opts.PublicURL != "" {
		return strings.TrimRight(u.opts.PublicURL, "/") + "/" + key
	}
	return strings.TrimRight(u.opts.Endpoint, "/") + "/" + u.opts.Bucket + "/" + key
}

// FindLocal returns the first <dir>/<slug><ext> that exists, trying
// Extensions in order.
func FindLocal(dir, slug string) (string, bool) {
	for _, ext := range Extensions {
		p := filepath.Join(dir, slug+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// extFromURL returns the known image extension of a URL path, or .png.
func extFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if _, ok := contentTypes[ext]; ok {
			return ext
		}
	}
	return ".png"
}
