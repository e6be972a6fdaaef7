// Package s3 implements core.ArtifactStore on Amazon S3 or any S3-compatible
// object store (MinIO, R2, etc.).
//
// Each artifact version is one object:
//
//	<prefix>/<app>/<user>/<session>/<name>/<version>
//
// The caller configures credentials, region and endpoint on the client.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/seobando/agentkit/artifact"
	"github.com/seobando/agentkit/core"
)

// S3Client abstracts the S3 operations used by Store. *s3.Client satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ core.ArtifactStore = (*Store)(nil)

// Store is an S3-backed artifact store.
type Store struct {
	client S3Client
	bucket string
	prefix string
}

// New creates a store writing to bucket under prefix. Pass "" for no prefix.
func New(client S3Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewFromConfig creates a store with an *s3.Client built from cfg.
func NewFromConfig(cfg aws.Config, bucket, prefix string, optFns ...func(*s3.Options)) *Store {
	return New(s3.NewFromConfig(cfg, optFns...), bucket, prefix)
}

func (s *Store) sessionPrefix(app, user, session string) string {
	p := app + "/" + user + "/" + session + "/"
	if s.prefix == "" {
		return p
	}
	return s.prefix + "/" + p
}

func (s *Store) namePrefix(key core.ArtifactKey) string {
	return s.sessionPrefix(key.AppName, key.UserID, key.SessionID) + key.Name + "/"
}

func (s *Store) objectKey(key core.ArtifactKey, version int) string {
	return s.namePrefix(key) + strconv.Itoa(version)
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

// Save writes the next version of the artifact.
func (s *Store) Save(ctx context.Context, key core.ArtifactKey, art core.Artifact) (int, error) {
	if err := validName(key.Name); err != nil {
		return 0, err
	}
	versions, err := s.versions(ctx, key)
	if err != nil {
		return 0, err
	}
	next := 1
	if n := len(versions); n > 0 {
		next = versions[n-1] + 1
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key, next)),
		Body:   bytes.NewReader(art.Data),
	}
	if art.MIMEType != "" {
		in.ContentType = aws.String(art.MIMEType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return 0, fmt.Errorf("put artifact %s: %w", key.Name, err)
	}
	return next, nil
}

// Load reads a version, or the latest when version <= 0.
func (s *Store) Load(ctx context.Context, key core.ArtifactKey, version int) (core.Artifact, error) {
	if version <= 0 {
		versions, err := s.versions(ctx, key)
		if err != nil {
			return core.Artifact{}, err
		}
		if len(versions) == 0 {
			return core.Artifact{}, fmt.Errorf("load %s: %w", key.Name, artifact.ErrArtifactNotFound)
		}
		version = versions[len(versions)-1]
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key, version)),
	})
	if err != nil {
		if isNotFound(err) {
			return core.Artifact{}, fmt.Errorf("load %s version %d: %w", key.Name, version, artifact.ErrArtifactNotFound)
		}
		return core.Artifact{}, fmt.Errorf("get artifact %s: %w", key.Name, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return core.Artifact{}, fmt.Errorf("read artifact %s: %w", key.Name, err)
	}
	return core.Artifact{Data: data, MIMEType: aws.ToString(out.ContentType)}, nil
}

// List returns the sorted artifact names of a session.
func (s *Store) List(ctx context.Context, appName, userID, sessionID string) ([]string, error) {
	prefix := s.sessionPrefix(appName, userID, sessionID)
	names := []string{}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list artifacts: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes every version of the artifact.
func (s *Store) Delete(ctx context.Context, key core.ArtifactKey) error {
	versions, err := s.versions(ctx, key)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("delete %s: %w", key.Name, artifact.ErrArtifactNotFound)
	}
	for _, v := range versions {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key, v)),
		}); err != nil {
			return fmt.Errorf("delete artifact %s version %d: %w", key.Name, v, err)
		}
	}
	return nil
}

// Versions lists stored versions in ascending order.
func (s *Store) Versions(ctx context.Context, key core.ArtifactKey) ([]int, error) {
	versions, err := s.versions(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("versions of %s: %w", key.Name, artifact.ErrArtifactNotFound)
	}
	return versions, nil
}

func (s *Store) versions(ctx context.Context, key core.ArtifactKey) ([]int, error) {
	prefix := s.namePrefix(key)
	var out []int
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list versions of %s: %w", key.Name, err)
		}
		for _, obj := range page.Contents {
			v, err := strconv.Atoi(strings.TrimPrefix(aws.ToString(obj.Key), prefix))
			if err != nil || v <= 0 {
				continue
			}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
