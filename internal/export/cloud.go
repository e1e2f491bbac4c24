package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rescale/imghub/internal/config"
	"github.com/rescale/imghub/internal/http"
)

// EnvAzureConnectionString names the variable holding the storage account
// connection string used by azblob:// destinations.
const EnvAzureConnectionString = "AZURE_STORAGE_CONNECTION_STRING"

// EnvS3Endpoint overrides the S3 endpoint for S3-compatible stores such as
// MinIO. Requests to a custom endpoint use path-style addressing.
const EnvS3Endpoint = "IMGHUB_S3_ENDPOINT"

var ErrMissingAzureCredentials = errors.New(EnvAzureConnectionString + " is not set")

const exportContentType = "application/json"

// S3Sink puts the document as a single object.
type S3Sink struct {
	client *s3.Client
	bucket string
	key    string
}

// S3Options adjusts the S3 client. The zero value talks to AWS.
type S3Options struct {
	// Region overrides the region from the credential chain.
	Region string
	// Endpoint is a custom endpoint URL. Empty uses the AWS endpoint.
	Endpoint string
	// UsePathStyle puts the bucket in the path instead of the host name.
	UsePathStyle bool
}

// NewS3Sink builds an S3 client from the default AWS credential chain.
// The HTTP client carries the configured proxy settings.
func NewS3Sink(ctx context.Context, httpClient *nethttp.Client, bucket, key string, opts S3Options) (*S3Sink, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if httpClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(httpClient))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if opts.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return &S3Sink{client: s3.NewFromConfig(cfg, s3Opts...), bucket: bucket, key: key}, nil
}

// Put uploads data with PutObject.
func (s *S3Sink) Put(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(exportContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// AzBlobSink uploads the document as a block blob.
type AzBlobSink struct {
	client    *azblob.Client
	container string
	blobName  string
}

// NewAzBlobSink builds an Azure client from a storage connection string.
func NewAzBlobSink(httpClient *nethttp.Client, connectionString, container, blobName string) (*AzBlobSink, error) {
	if connectionString == "" {
		return nil, ErrMissingAzureCredentials
	}
	var opts *azblob.ClientOptions
	if httpClient != nil {
		opts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Transport: httpClient,
			},
		}
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &AzBlobSink{client: client, container: container, blobName: blobName}, nil
}

// Put uploads data with UploadBuffer.
func (a *AzBlobSink) Put(ctx context.Context, data []byte) error {
	contentType := exportContentType
	_, err := a.client.UploadBuffer(ctx, a.container, a.blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("azblob upload %s/%s: %w", a.container, a.blobName, err)
	}
	return nil
}

// Open returns the sink for dest. Cloud sinks share the proxy-aware HTTP
// client used for submissions.
func Open(ctx context.Context, dest Destination, cfg *config.Config) (Sink, error) {
	switch dest.Scheme {
	case SchemeFile:
		return NewFileSink(dest.Key), nil
	case SchemeS3:
		hc, err := http.CreateUploadClient(cfg)
		if err != nil {
			return nil, err
		}
		endpoint := os.Getenv(EnvS3Endpoint)
		return NewS3Sink(ctx, hc, dest.Bucket, dest.Key, S3Options{
			Endpoint:     endpoint,
			UsePathStyle: endpoint != "",
		})
	case SchemeAzBlob:
		hc, err := http.CreateUploadClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewAzBlobSink(hc, os.Getenv(EnvAzureConnectionString), dest.Bucket, dest.Key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, dest.Scheme)
	}
}
