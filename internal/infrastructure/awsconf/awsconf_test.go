package awsconf

import (
	"context"
	"testing"

	"github.com/ai-content-platform/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StaticCredentials(t *testing.T) {
	cfg := &config.Config{AWSRegion: "eu-west-1", AWSAccessKeyID: "AKID", AWSSecretKey: "secret"}
	awsCfg, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestEndpoint(t *testing.T) {
	assert.Nil(t, Endpoint(&config.Config{}))
	ep := Endpoint(&config.Config{AWSEndpointURL: "http://localhost:4566"})
	require.NotNil(t, ep)
	assert.Equal(t, "http://localhost:4566", *ep)
}
