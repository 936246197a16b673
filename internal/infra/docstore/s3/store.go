// Package s3 implements the remote document store on an S3-compatible bucket
// (AWS S3 or MinIO). Each document is one JSON object.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"flockcore/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

const (
	documentSuffix = ".json"
	contentType    = "application/json"
)

// listConcurrency bounds the object downloads List runs at once.
const listConcurrency = 8

// Store implements domain.DocumentStore over a single bucket. Keys have the
// form <prefix>/<collection>/<id>.json.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds explicit construction parameters.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
	HTTPClient      *http.Client // optional; tests inject a fake transport
}

// New creates an S3 document store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *Store) key(collection, id string) string {
	return path.Join(s.prefix, collection, id+documentSuffix)
}

func (s *Store) collectionPrefix(collection string) string {
	return path.Join(s.prefix, collection) + "/"
}

// Get downloads a document.
func (s *Store) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	key := s.key(collection, id)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return domain.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
		}
		return domain.Document{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", key, err)
	}
	return domain.Document{Collection: collection, ID: id, Data: data}, nil
}

// Put uploads a document, replacing any previous version.
func (s *Store) Put(ctx context.Context, doc domain.Document) error {
	if doc.Collection == "" || doc.ID == "" {
		return fmt.Errorf("document collection and id required")
	}
	key := s.key(doc.Collection, doc.ID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(doc.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes a document. S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	key := s.key(collection, id)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List fetches every document under the collection prefix, ordered by ID.
func (s *Store) List(ctx context.Context, collection string) ([]domain.Document, error) {
	prefix := s.collectionPrefix(collection)
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, documentSuffix) {
				keys = append(keys, k)
			}
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(keys)
	fetched := make([]domain.Document, len(keys))
	found := make([]bool, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, prefix), documentSuffix)
		g.Go(func() error {
			doc, err := s.Get(gctx, collection, id)
			if errors.Is(err, domain.ErrDocumentNotFound) {
				// deleted between list and get
				return nil
			}
			if err != nil {
				return err
			}
			fetched[i], found[i] = doc, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(keys))
	for i, ok := range found {
		if ok {
			docs = append(docs, fetched[i])
		}
	}
	return docs, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
