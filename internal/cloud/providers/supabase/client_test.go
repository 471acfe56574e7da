package supabase

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/models"
)

// makeJWT builds an unsigned JWT carrying just a role claim.
func makeJWT(role string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"role":%q}`, role)))
	return header + "." + payload + ".sig"
}

func TestParseCredentials(t *testing.T) {
	anon := makeJWT("anon")

	tests := []struct {
		name       string
		credential string
		want       Project
		wantErr    string
	}{
		{
			name:       "json",
			credential: fmt.Sprintf(`{"url":"https://proj.supabase.co","key":%q}`, anon),
			want:       Project{URL: "https://proj.supabase.co", Key: anon},
		},
		{
			name:       "pipe",
			credential: "https://proj.supabase.co|" + anon,
			want:       Project{URL: "https://proj.supabase.co", Key: anon},
		},
		{
			name:       "pipe with padding",
			credential: " https://proj.supabase.co | " + anon + " ",
			want:       Project{URL: "https://proj.supabase.co", Key: anon},
		},
		{
			name:       "json with non-jwt key",
			credential: `{"url":"https://proj.supabase.co","key":"sbp_v0_notajwt"}`,
			wantErr:    "anon/service_role JWT",
		},
		{
			name:       "pipe with non-jwt key",
			credential: "https://proj.supabase.co|sbp_v0_notajwt",
			wantErr:    "anon/service_role JWT",
		},
		{
			name:       "bare token",
			credential: anon,
			wantErr:    "url/key or 'url|key'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCredentials(tt.credential)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseCredentials() = %+v, %v; want error containing %q", got, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCredentials() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCredentials() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseBucket(t *testing.T) {
	tests := []struct {
		locator string
		want    string
		wantErr bool
	}{
		{locator: "media", want: "media"},
		{locator: "media/ignored/subpath", want: "media"},
		{locator: "supabase://media", want: "media"},
		{locator: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBucket(tt.locator)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBucket(%q) = %q, want error", tt.locator, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseBucket(%q) = %q, %v; want %q", tt.locator, got, err, tt.want)
		}
	}
}

func TestJWTRole(t *testing.T) {
	if got := jwtRole(makeJWT("service_role")); got != "service_role" {
		t.Errorf("jwtRole() = %q, want service_role", got)
	}
	if got := jwtRole("not.a.jwt"); got != "" {
		t.Errorf("jwtRole(garbage) = %q, want empty", got)
	}
}

func TestUploadMany(t *testing.T) {
	content := []byte("fake png bytes")
	anon := makeJWT("anon")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/storage/v1/object/media/renders/cat.png", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+anon {
			t.Errorf("upload auth = %q", got)
		}
		if got := r.Header.Get("x-upsert"); got != "true" {
			t.Errorf("x-upsert = %q", got)
		}
		if got := r.Header.Get("Content-Type"); !strings.HasPrefix(got, "image/png") {
			t.Errorf("content type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != string(content) {
			t.Errorf("upload body = %q", body)
		}
		io.WriteString(w, `{"Key":"media/renders/cat.png"}`)
	})

	dest := models.Destination{
		Provider:   "supabase",
		Locator:    "media",
		FolderPath: "renders",
		Credential: srv.URL + "|" + anon,
	}

	c := New()
	results, err := c.UploadMany(context.Background(), []models.FileItem{{Filename: "cat.png", Content: content}}, dest, cloud.Hooks{})
	if err != nil {
		t.Fatalf("UploadMany() error = %v", err)
	}

	got := results[0]
	if got.Bucket != "media" || got.Path != "renders/cat.png" {
		t.Errorf("UploadMany() result = %+v", got)
	}
	if want := srv.URL + "/storage/v1/object/public/media/renders/cat.png"; got.URL != want {
		t.Errorf("UploadMany() URL = %q, want %q", got.URL, want)
	}
}

func TestUploadManyRLSBlocked(t *testing.T) {
	anon := makeJWT("anon")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"new row violates row-level security policy"}`)
	}))
	defer srv.Close()

	dest := models.Destination{
		Locator:    "media",
		Credential: srv.URL + "|" + anon,
	}

	c := New()
	_, err := c.UploadMany(context.Background(), []models.FileItem{{Filename: "cat.png", Content: []byte("x")}}, dest, cloud.Hooks{})
	if err == nil || !strings.Contains(err.Error(), "service_role") {
		t.Errorf("UploadMany() error = %v, want RLS guidance", err)
	}
}

func TestDownloadMany(t *testing.T) {
	content := []byte("fake png bytes")
	anon := makeJWT("anon")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/storage/v1/object/media/cat.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})

	dest := models.Destination{
		Locator:    "media",
		Credential: srv.URL + "|" + anon,
	}

	c := New()
	files, err := c.DownloadMany(context.Background(), []string{"cat.png"}, dest, cloud.Hooks{})
	if err != nil {
		t.Fatalf("DownloadMany() error = %v", err)
	}
	if len(files) != 1 || string(files[0].Content) != string(content) {
		t.Errorf("DownloadMany() = %+v", files)
	}
}
