package offer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"shopfront/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// maxObjectBytes bounds the compressed size of a single offer file.
const maxObjectBytes = 32 << 20

// ObjectGetter is the subset of the S3 client used by the loader.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader builds a bucket loader from the default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient wraps an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "offer-s3").Str("bucket", bucket).Logger(),
	}
}

// Load reads the object stored under key.
func (l *s3Loader) Load(ctx context.Context, key string) ([]model.CreateOfferRequest, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer out.Body.Close()

	if size := aws.ToInt64(out.ContentLength); size > maxObjectBytes {
		return nil, fmt.Errorf("offer file s3://%s/%s is %d bytes, limit is %d", l.bucket, key, size, maxObjectBytes)
	}

	defs, err := readDefinitions(ctx, io.LimitReader(out.Body, maxObjectBytes), "s3://"+l.bucket+"/"+key)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("key", key).
		Str("etag", aws.ToString(out.ETag)).
		Int("offers", len(defs)).
		Msg("offer file read")

	return defs, nil
}

// Source is one place offer files can be read from.
type Source struct {
	Name   string
	Loader Loader
	// Key maps an import path to the location Loader understands. Nil keeps
	// the path unchanged.
	Key func(path string) string
}

// PrefixKey places import paths under prefix inside a bucket.
func PrefixKey(prefix string) func(string) string {
	return func(p string) string {
		return path.Join(prefix, p)
	}
}

type chainLoader struct {
	sources []Source
	logger  zerolog.Logger
}

// NewChainLoader tries each source in order and returns the first successful
// read. Sources with a nil Loader are skipped.
func NewChainLoader(logger zerolog.Logger, sources ...Source) Loader {
	active := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.Loader != nil {
			active = append(active, s)
		}
	}
	return &chainLoader{
		sources: active,
		logger:  logger.With().Str("component", "offer-sources").Logger(),
	}
}

func (c *chainLoader) Load(ctx context.Context, p string) ([]model.CreateOfferRequest, error) {
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("no offer sources configured for %s", p)
	}

	var errs []error
	for _, src := range c.sources {
		location := p
		if src.Key != nil {
			location = src.Key(p)
		}

		defs, err := src.Loader.Load(ctx, location)
		if err == nil {
			c.logger.Debug().Str("source", src.Name).Str("location", location).Msg("offer file resolved")
			return defs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn().Err(err).Str("source", src.Name).Str("location", location).Msg("offer source failed")
		errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
	}

	return nil, fmt.Errorf("offer file %s unavailable: %w", p, errors.Join(errs...))
}
