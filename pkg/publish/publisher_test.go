package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	contentType string
	content     string
}

type fakeBucket struct {
	public    bool
	policyErr error
	uploadErr error
	uploads   map[string]upload
}

func newFakeBucket(public bool) *fakeBucket {
	return &fakeBucket{public: public, uploads: map[string]upload{}}
}

func (b *fakeBucket) Name() string { return "ci-reports" }

func (b *fakeBucket) IsPublic(context.Context) (bool, error) {
	return b.public, b.policyErr
}

func (b *fakeBucket) Upload(_ context.Context, key, contentType string, content []byte) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	b.uploads[key] = upload{contentType: contentType, content: string(content)}
	return nil
}

func (b *fakeBucket) keys() []string {
	keys := make([]string, 0, len(b.uploads))
	for k := range b.uploads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeReport(t *testing.T, withIndex bool) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"data.json":        `{"summary":{}}`,
		"assets/cikit.css": "body{}",
		"assets/app.js":    "console.log(1)",
		"logo.png":         "\x89PNG\r\n\x1a\n0000",
	}
	if withIndex {
		files["index.html"] = "<!DOCTYPE html><html></html>"
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return dir
}

func TestPublisher_PublicBucket(t *testing.T) {
	bucket := newFakeBucket(true)

	url, err := NewPublisher(bucket, writeReport(t, true), "180341233").Publish(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://storage.googleapis.com/ci-reports/180341233/index.html", url)
	assert.Equal(t, []string{
		"180341233/assets/app.js",
		"180341233/assets/cikit.css",
		"180341233/data.json",
		"180341233/index.html",
		"180341233/logo.png",
	}, bucket.keys())
	assert.Equal(t, "text/html", bucket.uploads["180341233/index.html"].contentType)
	assert.Equal(t, "application/json", bucket.uploads["180341233/data.json"].contentType)
	assert.Equal(t, "text/css", bucket.uploads["180341233/assets/cikit.css"].contentType)
	assert.Equal(t, "application/javascript", bucket.uploads["180341233/assets/app.js"].contentType)
	assert.Equal(t, "image/png", bucket.uploads["180341233/logo.png"].contentType)
}

func TestPublisher_PrivateBucketHasNoURL(t *testing.T) {
	bucket := newFakeBucket(false)

	url, err := NewPublisher(bucket, writeReport(t, true), "1").Publish(context.Background())
	require.NoError(t, err)

	assert.Empty(t, url)
	assert.Len(t, bucket.uploads, 5)
}

func TestPublisher_NoIndexHasNoURL(t *testing.T) {
	url, err := NewPublisher(newFakeBucket(true), writeReport(t, false), "1").Publish(context.Background())
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestPublisher_Errors(t *testing.T) {
	dir := writeReport(t, true)

	_, err := NewPublisher(newFakeBucket(true), dir, "").Publish(context.Background())
	assert.Error(t, err)

	denied := newFakeBucket(true)
	denied.policyErr = errors.New("permission denied")
	_, err = NewPublisher(denied, dir, "1").Publish(context.Background())
	assert.Error(t, err)

	failing := newFakeBucket(true)
	failing.uploadErr = errors.New("quota exceeded")
	_, err = NewPublisher(failing, dir, "1").Publish(context.Background())
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestParseTarget(t *testing.T) {
	for _, s := range []string{"gcs", "google-cloud-storage"} {
		target, err := ParseTarget(s)
		require.NoError(t, err)
		assert.Equal(t, TargetGCS, target)
	}
	_, err := ParseTarget("s3")
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/html", DetectContentType("INDEX.HTML", nil))
	assert.Equal(t, "text/plain; charset=utf-8", DetectContentType("notes", []byte("plain words")))
}
