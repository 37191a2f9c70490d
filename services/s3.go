package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type AWSServiceProvider interface {
	InitClients(ctx context.Context, settings Settings) error
	ProbeBucket(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, bucketName, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucketName, key string) error
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
	GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string, expiry time.Duration) (string, error)
}

// AWSService talks to a Cloudflare R2 bucket through the S3 API.
type AWSService struct {
	S3Client        *s3.Client
	S3PresignClient *s3.PresignClient
}

func (awsService *AWSService) InitClients(ctx context.Context, settings Settings) error {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", settings.R2AccountID),
		}, nil
	})
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			settings.R2AccessKeyID, settings.R2AccessKeySecret, "")),
	)
	if err != nil {
		log.Printf("unable to load SDK config: %v", err)
		return err
	}

	s3Client := s3.NewFromConfig(cfg)
	awsService.S3Client = s3Client
	awsService.S3PresignClient = s3.NewPresignClient(s3Client)
	return nil
}

func (awsService *AWSService) ProbeBucket(ctx context.Context, bucketName string) error {
	_, err := awsService.S3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)})
	return err
}

func (awsService *AWSService) PutObject(ctx context.Context, bucketName, key string, body []byte, contentType string) error {
	_, err := awsService.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

func (awsService *AWSService) GetObject(ctx context.Context, bucketName, key string) ([]byte, error) {
	out, err := awsService.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (awsService *AWSService) DeleteObject(ctx context.Context, bucketName, key string) error {
	_, err := awsService.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	return err
}

func (awsService *AWSService) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	var keys []string
	var continuation *string
	for {
		out, err := awsService.S3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucketName),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			keys = append(keys, *obj.Key)
		}
		if !out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return keys, nil
}

func (awsService *AWSService) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string, expiry time.Duration) (string, error) {
	presignedGetRequest, err := awsService.S3PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(fileKey),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign request: %v", err)
	}
	return presignedGetRequest.URL, nil
}
