/*
Copyright © 2019 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package chlutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
)

// maxDownloadRetries is the number of times a failed HTTP download is retried.
const maxDownloadRetries = 5

// newBackOff returns the retry schedule for HTTP downloads.
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// maybeDownload checks if path is an existing local file.
// If not, and path is an http(s) URL or a blob location, the file is
// copied into dir, which is created if necessary, and the path to the
// copy is returned. Any other path is returned unchanged.
func maybeDownload(ctx context.Context, path, dir string, log logrus.FieldLogger) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return downloadHTTP(ctx, path, dir, log)
	}
	if IsBlob(path) {
		return downloadBlob(ctx, path, dir, log)
	}
	return path, nil
}

// downloadHTTP downloads the file at rawurl into dir, retrying
// server errors with exponential backoff.
func downloadHTTP(ctx context.Context, rawurl, dir string, log logrus.FieldLogger) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("chlutil: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("chlutil: %w", err)
	}
	dst := filepath.Join(dir, path.Base(u.Path))
	log.WithFields(logrus.Fields{"url": rawurl, "file": dst}).Info("downloading")

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxDownloadRetries), ctx)
	err = backoff.RetryNotify(
		func() error { return getFile(ctx, rawurl, dst) },
		b,
		func(err error, d time.Duration) {
			log.WithError(err).WithField("url", rawurl).Warnf("retrying in %v", d)
		},
	)
	if err != nil {
		return "", fmt.Errorf("chlutil: downloading %s: %w", rawurl, err)
	}
	return dst, nil
}

// getFile copies the body of the response from rawurl to dst.
// Client errors are permanent; other failures may be retried.
func getFile(ctx context.Context, rawurl, dst string) error {
	req, err := http.NewRequest(http.MethodGet, rawurl, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	w, err := os.Create(dst)
	if err != nil {
		return backoff.Permanent(err)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// IsBlob reports whether path names a file in blob storage: a
// Google Cloud Storage ("gs://bucket/key"), AWS S3 ("s3://bucket/key")
// or local ("file://dir/name") location.
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket opens the storage bucket that chlorophyll files are
// copied from. For "gs://name" and "s3://name" the bucket is the named
// cloud bucket; for "file://dir" it is the local directory dir, which
// may be relative ("file://data") or absolute ("file:///srv/data").
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("chlutil: opening bucket: %w", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(filepath.FromSlash(u.Host + u.Path))
	case "gs":
		return gsBucket(ctx, u.Host)
	case "s3":
		return s3Bucket(ctx, u.Host)
	default:
		return nil, fmt.Errorf("chlutil: invalid storage provider %q", u.Scheme)
	}
}

// gsBucket opens a Google Cloud Storage bucket with the application
// default credentials.
func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an S3 bucket with credentials from AWS_ACCESS_KEY_ID
// and AWS_SECRET_ACCESS_KEY, in AWS_REGION or else us-east-2.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	s, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	})
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// splitBlob returns the bucket and key of the blob location u.
// The bucket of a local file is its directory.
func splitBlob(u *url.URL) (bucket, key string) {
	if u.Scheme == "file" {
		p := u.Host + u.Path
		return "file://" + path.Dir(p), path.Base(p)
	}
	return u.Scheme + "://" + u.Host, strings.TrimPrefix(u.Path, "/")
}

// downloadBlob copies the file at the blob location p into dir.
func downloadBlob(ctx context.Context, p, dir string, log logrus.FieldLogger) (string, error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("chlutil: %w", err)
	}
	bucketName, key := splitBlob(u)
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("chlutil: %w", err)
	}
	dst := filepath.Join(dir, path.Base(key))
	log.WithFields(logrus.Fields{"blob": p, "file": dst}).Info("copying from storage")

	r, err := bucket.NewReader(ctx, key)
	if err != nil {
		return "", fmt.Errorf("chlutil: reading %s: %w", p, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("chlutil: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("chlutil: copying %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("chlutil: %w", err)
	}
	return dst, nil
}
