package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/fetcher"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// FetchAuthoritative returns the authoritative organization list. The
// list at url refreshes the JSON cache at cachePath; the cache is used
// when url is empty, unchanged (same ETag) or unreachable.
func FetchAuthoritative(ctx context.Context, f fetcher.Fetcher, url, cachePath string) ([]model.AuthoritativeOrg, error) {
	if url == "" {
		return LoadAuthoritative(cachePath)
	}

	etagPath := cachePath + ".etag"
	etag := ""
	if _, err := os.Stat(cachePath); err == nil {
		if b, err := os.ReadFile(etagPath); err == nil {
			etag = strings.TrimSpace(string(b))
		}
	}

	body, newETag, changed, err := f.DownloadIfChanged(ctx, url, etag)
	if err != nil {
		zap.L().Warn("authoritative download failed, using cache",
			zap.String("url", url), zap.String("cache", cachePath), zap.Error(err))
		orgs, cacheErr := LoadAuthoritative(cachePath)
		if cacheErr != nil {
			return nil, eris.Wrap(err, "archive: fetch authoritative (no usable cache)")
		}
		return orgs, nil
	}
	if !changed {
		zap.L().Info("authoritative list unchanged", zap.String("etag", etag))
		return LoadAuthoritative(cachePath)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "archive: read authoritative")
	}
	orgs, err := ParseAuthoritative(data)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(cachePath, data); err != nil {
		return nil, err
	}
	if newETag != "" {
		if err := os.WriteFile(etagPath, []byte(newETag), 0o644); err != nil {
			return nil, eris.Wrap(err, "archive: write etag")
		}
	}
	zap.L().Info("authoritative list refreshed", zap.Int("organizations", len(orgs)))
	return orgs, nil
}

// LoadAuthoritative reads an authoritative list from a JSON file.
func LoadAuthoritative(path string) ([]model.AuthoritativeOrg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "archive: read authoritative %s", path)
	}
	return ParseAuthoritative(data)
}

// ParseAuthoritative decodes a JSON array of authoritative entries.
// Entries without a name are rejected.
func ParseAuthoritative(data []byte) ([]model.AuthoritativeOrg, error) {
	var orgs []model.AuthoritativeOrg
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&orgs); err != nil {
		return nil, eris.Wrap(err, "archive: decode authoritative")
	}
	for i, o := range orgs {
		if strings.TrimSpace(o.Name) == "" {
			return nil, eris.Errorf("archive: authoritative entry %d has no name", i)
		}
	}
	return orgs, nil
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "archive: create cache dir")
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "archive: write cache")
	}
	return eris.Wrap(os.Rename(tmp, path), "archive: replace cache")
}
