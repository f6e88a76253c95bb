package logo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"

	"github.com/ketankauntia/gsoc-orgs/internal/config"
)

// NewR2Client builds an S3 client for a Cloudflare R2 account.
func NewR2Client(ctx context.Context, cfg config.R2Config) (*s3.Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, eris.New("logo: r2 account_id, access_key_id, secret_access_key and bucket are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, eris.Wrap(err, "logo: load aws config")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint())
		o.UsePathStyle = true
	}), nil
}

// OptionsFromConfig maps R2 settings onto uploader options.
func OptionsFromConfig(cfg config.R2Config) Options {
	return Options{
		Bucket:    cfg.Bucket,
		PublicURL: cfg.PublicURL,
		Endpoint:  cfg.Endpoint(),
		Dir:       cfg.LogosDir,
	}
}
