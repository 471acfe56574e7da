package s3

import (
	"testing"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name       string
		locator    string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"scheme only bucket", "s3://my-bucket", "my-bucket", "", false},
		{"scheme with prefix", "s3://my-bucket/renders/2024", "my-bucket", "renders/2024", false},
		{"raw bucket", "my-bucket", "my-bucket", "", false},
		{"raw with prefix", "my-bucket/outputs", "my-bucket", "outputs", false},
		{"trailing slash", "s3://my-bucket/", "my-bucket", "", false},
		{"surrounding space", "  s3://my-bucket/p  ", "my-bucket", "p", false},
		{"empty", "", "", "", true},
		{"scheme only", "s3://", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, prefix, err := ParseLocator(tt.locator)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocator(%q) error = %v, wantErr %v", tt.locator, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("ParseLocator(%q) = (%q, %q), want (%q, %q)",
					tt.locator, bucket, prefix, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Credentials
	}{
		{
			"json canonical",
			`{"access_key": "AK", "secret_key": "SK", "region": "eu-central-1"}`,
			Credentials{AccessKey: "AK", SecretKey: "SK", Region: "eu-central-1"},
		},
		{
			"json aws aliases",
			`{"aws_access_key_id": "AK2", "aws_secret_access_key": "SK2", "aws_session_token": "ST"}`,
			Credentials{AccessKey: "AK2", SecretKey: "SK2", SessionToken: "ST"},
		},
		{
			"colon pair",
			"AKIA123:wJalrXUt",
			Credentials{AccessKey: "AKIA123", SecretKey: "wJalrXUt"},
		},
		{
			"colon with region",
			"AKIA123:wJalrXUt:us-west-2",
			Credentials{AccessKey: "AKIA123", SecretKey: "wJalrXUt", Region: "us-west-2"},
		},
		{"empty", "", Credentials{}},
		{"bare token ignored", "not-a-credential", Credentials{}},
		{"malformed json ignored", "{oops", Credentials{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCredentials(tt.in); got != tt.want {
				t.Errorf("ParseCredentials(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRegionOrDefault(t *testing.T) {
	if got := (Credentials{}).RegionOrDefault(); got != "us-east-1" {
		t.Errorf("default region = %q", got)
	}
	if got := (Credentials{Region: "ap-southeast-2"}).RegionOrDefault(); got != "ap-southeast-2" {
		t.Errorf("explicit region = %q", got)
	}
}
