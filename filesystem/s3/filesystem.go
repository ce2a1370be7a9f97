// Package s3 serves a prefix of an S3-compatible bucket as a file system.
// File versions are object ETags.
package s3

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
)

type FileSystem struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

// NewClient creates a minio client for endpoint using static credentials.
func NewClient(endpoint, accessKey, secretKey string, useSsl bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSsl,
	})
}

// NewFileSystem returns a file system over all objects below prefix.
func NewFileSystem(ctx context.Context, client *minio.Client, bucketName, prefix string) (*FileSystem, error) {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, data.Transient(err, bucketName)
	}

	if !exists {
		return nil, fmt.Errorf("%w: bucket '%s' does not exist", data.ErrBackendFailed, bucketName)
	}

	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" {
		prefix = data.ToDirectory(prefix)
	}

	return &FileSystem{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
	}, nil
}

func (sfs *FileSystem) Identity() string {
	return fmt.Sprintf("s3:%s/%s/%s", sfs.client.EndpointURL().Host, sfs.bucketName, sfs.prefix)
}

func (sfs *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	if err := filesystem.ValidateFilePath(path); err != nil {
		return nil, "", err
	}

	object, err := sfs.client.GetObject(ctx, sfs.bucketName, sfs.prefix+path, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", toError(err, path)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		return nil, "", toError(err, path)
	}

	content, err := io.ReadAll(object)
	if err != nil {
		return nil, "", toError(err, path)
	}
	return content, info.ETag, nil
}

func (sfs *FileSystem) ReadDirectory(ctx context.Context, path string) ([]string, string, error) {
	if err := filesystem.ValidateDirectoryPath(path); err != nil {
		return nil, "", err
	}

	stat, err := sfs.statDirectory(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return stat.Children(), stat.Version, nil
}

func (sfs *FileSystem) Stat(ctx context.Context, path string) (*data.StatInfo, error) {
	if err := data.ValidatePath(path); err != nil {
		return nil, err
	}

	if data.IsDirectory(path) {
		return sfs.statDirectory(ctx, path)
	}

	info, err := sfs.client.StatObject(ctx, sfs.bucketName, sfs.prefix+path, minio.StatObjectOptions{})
	if err != nil {
		return nil, toError(err, path)
	}
	return data.NewStatInfo(info.ETag), nil
}

// statDirectory lists everything below path in one recursive request and
// derives directory versions from the ETags of all descendants.
func (sfs *FileSystem) statDirectory(ctx context.Context, path string) (*data.StatInfo, error) {
	prefix := sfs.prefix + path

	files := make(map[string]string)
	for object := range sfs.client.ListObjects(ctx, sfs.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, toError(object.Err, path)
		}

		relative := strings.TrimPrefix(object.Key, prefix)
		if relative == "" {
			// Directory marker object
			continue
		}
		files[relative] = object.ETag
	}

	if len(files) == 0 && path != "" {
		return nil, data.NotFound(nil, path)
	}

	names := slices.Sorted(maps.Keys(files))

	children := make(map[string]string)
	digests := make(map[string]*xxhash.Digest)
	total := xxhash.New()

	for _, name := range names {
		writeEntry(total, name, files[name])

		child, rest, nested := strings.Cut(name, "/")
		if !nested {
			children[child] = files[name]
			continue
		}

		digest, ok := digests[child+"/"]
		if !ok {
			digest = xxhash.New()
			digests[child+"/"] = digest
		}
		writeEntry(digest, rest, files[name])
	}

	for child, digest := range digests {
		children[child] = strconv.FormatUint(digest.Sum64(), 16)
	}

	return data.NewDirectoryStatInfo(strconv.FormatUint(total.Sum64(), 16), children), nil
}

func writeEntry(digest *xxhash.Digest, name, etag string) {
	digest.WriteString(name)
	digest.WriteString("\x00")
	digest.WriteString(etag)
	digest.WriteString("\n")
}

func toError(err error, path string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return data.NotFound(err, path)
	}
	return data.Transient(err, path)
}
