package storage

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3Storage struct {
	Client     *s3.Client
	BucketName string
}

// NewS3Storage initializes a new S3Storage instance
func NewS3Storage(client *s3.Client, bucketName string) *s3Storage {
	return &s3Storage{Client: client, BucketName: bucketName}
}

func (s *s3Storage) GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	matchedFiles := []string{}
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.BucketName),
		Prefix: aws.String(prefix), // Only return objects with this prefix
	})

	// Iterate through paginated results
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list S3 objects")
		}

		for _, obj := range page.Contents {
			matchedFiles = append(matchedFiles, *obj.Key)
		}
	}

	return matchedFiles, nil
}

// Write uploads data to an S3 bucket with a given key
func (s *s3Storage) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(key),
		Body:   io.NopCloser(bytes.NewReader(data)),
		ACL:    types.ObjectCannedACLPrivate,
	})
	return errors.Wrapf(err, "can not write %s", key)
}

type s3StreamWriter struct {
	writer     *bufio.Writer
	pipeWriter *io.PipeWriter
	wg         *sync.WaitGroup
	uploadErr  error
}

func (s *s3StreamWriter) Write(data []byte) (int, error) {
	return s.writer.Write(data)
}

// Close flushes what is left and waits for the upload to finish
func (s *s3StreamWriter) Close() error {
	err := s.writer.Flush()
	if err != nil {
		s.pipeWriter.CloseWithError(err)
		s.wg.Wait()
		return err
	}
	// Close the pipeWriter to signal the end of data
	s.pipeWriter.Close()
	s.wg.Wait()
	return s.uploadErr
}

// BeginStream creates a new pipe for streaming data to S3
func (s *s3Storage) BeginStream(ctx context.Context, key string) (StreamWriter, error) {
	pipeReader, pipeWriter := io.Pipe()
	wg := &sync.WaitGroup{}
	wg.Add(1)

	sw := &s3StreamWriter{
		writer:     bufio.NewWriter(pipeWriter),
		pipeWriter: pipeWriter,
		wg:         wg,
	}

	// Goroutine to upload the data to S3
	go func() {
		defer wg.Done()

		_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.BucketName),
			Key:    aws.String(key),
			Body:   pipeReader,
		}, func(o *s3.Options) {
			o.Retryer = aws.NopRetryer{} // a pipe can not be rewound for a retry
		})
		if err != nil {
			sw.uploadErr = errors.Wrapf(err, "s3 upload of %s failed", key)
		}

		// Unblock the writer if the upload gave up early
		pipeReader.CloseWithError(err)
	}()

	return sw, nil
}

// Read downloads data from an S3 bucket for a given key
func (s *s3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			// Handle the "file doesn't exist" case cleanly
			return nil, ErrDoesNotExist
		}
		// Unexpected error
		return nil, errors.Wrapf(err, "failed to get object %s", key)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrDoesNotExist
		}
		return nil, errors.Wrap(err, "can not read file")
	}
	return data, nil
}

// Delete removes an object from an S3 bucket for a given key
func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKeyError *types.NoSuchKey
		if errors.As(err, &noSuchKeyError) {
			return nil // Ignore file not found errors
		}
		return errors.Wrapf(err, "can not delete %s", key)
	}
	return nil
}
