package endpoints

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/matzehuels/neptune-utils/pkg/buildinfo"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

const roleSessionName = "neptune-utils"

// resolveCredentials returns the provider used for signing and the region
// to sign for. The region falls back to the one found by the AWS config
// loader.
func resolveCredentials(ctx context.Context, opts Options) (aws.CredentialsProvider, string, error) {
	region := opts.Region
	creds := opts.Credentials

	var awsCfg aws.Config
	if creds == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(region))
		}
		loadOpts = append(loadOpts, awsconfig.WithAppID(roleSessionName+"-"+buildinfo.Version))

		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeUnauthorized, err, "load AWS configuration")
		}
		awsCfg = cfg
		creds = cfg.Credentials
		if region == "" {
			region = cfg.Region
		}
	} else {
		awsCfg = aws.Config{Region: region, Credentials: creds}
	}

	if creds == nil {
		return nil, "", errors.New(errors.ErrCodeUnauthorized, "no AWS credentials available")
	}

	if opts.RoleARN != "" {
		if err := errors.ValidateRoleARN(opts.RoleARN); err != nil {
			return nil, "", err
		}
		client := sts.NewFromConfig(awsCfg)
		provider := stscreds.NewAssumeRoleProvider(client, opts.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = roleSessionName
		})
		creds = aws.NewCredentialsCache(provider)
	}

	return creds, region, nil
}
