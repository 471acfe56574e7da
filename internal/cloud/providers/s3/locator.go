package s3

import (
	"fmt"
	"strings"

	"github.com/mediasink/mediasink/internal/cloud/credentials"
)

// Credentials is the parsed S3 credential grammar.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	Region       string
	SessionToken string
}

// RegionOrDefault returns the credential's region, or us-east-1.
func (c Credentials) RegionOrDefault() string {
	if c.Region != "" {
		return c.Region
	}
	return DefaultRegion
}

// ParseCredentials accepts either a JSON document
//
//	{"access_key": "...", "secret_key": "...", "region": "...", "session_token": "..."}
//
// (aws_access_key_id / aws_secret_access_key / aws_region aliases allowed)
// or the colon form ACCESS:SECRET[:REGION]. An empty or unrecognized value
// yields zero Credentials, which defers to the SDK's default chain
// (instance profiles, shared config, env vars).
func ParseCredentials(credential string) Credentials {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Credentials{}
	}

	if f, ok := credentials.ParseJSON(credential); ok {
		return Credentials{
			AccessKey:    f.First("access_key", "aws_access_key_id"),
			SecretKey:    f.First("secret_key", "aws_secret_access_key"),
			Region:       f.First("region", "aws_region"),
			SessionToken: f.First("session_token", "aws_session_token"),
		}
	}

	if strings.Contains(credential, ":") {
		parts := strings.Split(credential, ":")
		c := Credentials{}
		if len(parts) >= 2 {
			c.AccessKey, c.SecretKey = parts[0], parts[1]
		}
		if len(parts) >= 3 {
			c.Region = parts[2]
		}
		return c
	}

	return Credentials{}
}

// ParseLocator splits a destination locator into bucket and base prefix.
// Accepted forms: "s3://bucket", "s3://bucket/prefix", "bucket/prefix" or
// a bare bucket name.
func ParseLocator(locator string) (bucket, basePrefix string, err error) {
	trimmed := strings.TrimSpace(locator)
	if rest, ok := strings.CutPrefix(trimmed, "s3://"); ok {
		trimmed = rest
	}
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("%s: destination locator must name a bucket (s3://bucket[/prefix])", DisplayName)
	}

	bucket, basePrefix, _ = strings.Cut(trimmed, "/")
	return bucket, basePrefix, nil
}
