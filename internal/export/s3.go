package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Object metadata recorded with every snapshot. S3 returns user metadata
// keys in lower case.
const (
	metaDigest  = "todoboard-digest"
	metaVersion = "todoboard-version"
	metaLists   = "todoboard-lists"
	metaItems   = "todoboard-tasks"
)

type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination keeps the latest snapshot as one object in an S3-compatible
// bucket. The object's metadata carries the snapshot digest and counts, and
// an upload is skipped when the stored digest already matches.
type S3Destination struct {
	client objectAPI
	bucket string
	key    string
}

// NewS3Destination creates an S3 destination using the default AWS
// credential chain. A non-empty endpoint selects path-style addressing, as
// MinIO and similar servers expect.
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: bucket, key: key}, nil
}

func (d *S3Destination) Deliver(ctx context.Context, snap *Snapshot) (bool, error) {
	stored, err := d.storedDigest(ctx)
	if err != nil {
		return false, err
	}
	if stored == snap.Digest {
		return false, nil
	}

	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(snap.Data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			metaDigest:  snap.Digest,
			metaVersion: snap.Header.Version,
			metaLists:   strconv.Itoa(snap.Header.ListCount),
			metaItems:   strconv.Itoa(snap.Header.ItemCount),
		},
	})
	if err != nil {
		return false, fmt.Errorf("uploading %s: %w", d, err)
	}
	return true, nil
}

// storedDigest returns the digest of the snapshot currently in the bucket,
// or "" when there is none.
func (d *S3Destination) storedDigest(ctx context.Context) (string, error) {
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", d, err)
	}
	return out.Metadata[metaDigest], nil
}

func (d *S3Destination) String() string { return "s3://" + d.bucket + "/" + d.key }
