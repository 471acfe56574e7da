package b2

import (
	"fmt"
	"strings"

	"github.com/mediasink/mediasink/internal/cloud/credentials"
)

// Credentials is a B2 application key pair.
type Credentials struct {
	KeyID  string
	AppKey string
}

// ParseCredentials accepts "keyId:applicationKey" or a JSON document with
// key_id / application_key fields.
func ParseCredentials(credential string) (Credentials, error) {
	if f, ok := credentials.ParseJSON(credential); ok {
		c := Credentials{
			KeyID:  f.First("key_id", "keyId", "application_key_id", "applicationKeyId"),
			AppKey: f.First("application_key", "applicationKey", "app_key", "key"),
		}
		if c.KeyID == "" || c.AppKey == "" {
			return Credentials{}, fmt.Errorf("%s credential JSON must carry key_id and application_key", DisplayName)
		}
		return c, nil
	}

	keyID, appKey, ok := strings.Cut(credential, ":")
	if !ok {
		return Credentials{}, fmt.Errorf("%s credential must be 'keyId:applicationKey'", DisplayName)
	}
	return Credentials{
		KeyID:  strings.TrimSpace(keyID),
		AppKey: strings.TrimSpace(appKey),
	}, nil
}

// ParseLocator accepts "b2://bucket[/prefix]" or "bucket[/prefix]".
func ParseLocator(locator string) (bucket, basePrefix string, err error) {
	s := strings.TrimSpace(locator)
	s = strings.TrimPrefix(s, "b2://")
	s = strings.Trim(s, "/")
	bucket, basePrefix, _ = strings.Cut(s, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%s: destination locator must name a bucket (b2://bucket[/prefix])", DisplayName)
	}
	return bucket, basePrefix, nil
}
