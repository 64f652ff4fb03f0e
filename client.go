package toolbox

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ClientConfig configures NewClient.
type ClientConfig struct {
	// Region is the AWS region, e.g. "eu-central-1". Empty uses the
	// environment / shared config.
	Region string
	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack).
	// Static dummy credentials are used with it.
	Endpoint string
	// Timeout is the HTTP client timeout.
	Timeout time.Duration
}

// NewClient builds a DynamoDB client from the default AWS configuration
// chain.
func NewClient(ctx context.Context, cfg ClientConfig) (*ddb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var clientOpts []func(*ddb.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		clientOpts = append(clientOpts, func(o *ddb.Options) { o.BaseEndpoint = &endpoint })
	}
	return ddb.NewFromConfig(awsCfg, clientOpts...), nil
}

var _ DynamoClient = (*ddb.Client)(nil)
