package s3compat

import "testing"

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		want    Endpoint
		wantErr bool
	}{
		{
			"endpoint with bucket",
			"https://minio.example.com/media",
			Endpoint{BaseURL: "https://minio.example.com", Bucket: "media", BasePrefix: ""},
			false,
		},
		{
			"endpoint with prefix",
			"https://s3.us-west-001.backblazeb2.com/media/renders/March",
			Endpoint{BaseURL: "https://s3.us-west-001.backblazeb2.com", Bucket: "media", BasePrefix: "renders/March"},
			false,
		},
		{
			"http with port",
			"http://localhost:9000/test-bucket",
			Endpoint{BaseURL: "http://localhost:9000", Bucket: "test-bucket", BasePrefix: ""},
			false,
		},
		{"bare bucket rejected", "my-bucket", Endpoint{}, true},
		{"s3 scheme rejected", "s3://bucket/prefix", Endpoint{}, true},
		{"missing bucket", "https://minio.example.com", Endpoint{}, true},
		{"missing bucket with slash", "https://minio.example.com/", Endpoint{}, true},
		{"empty", "", Endpoint{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocator(tt.locator)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocator(%q) error = %v, wantErr %v", tt.locator, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLocator(%q) = %+v, want %+v", tt.locator, got, tt.want)
			}
		})
	}
}
