package onedrive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediasink/mediasink/internal/cloud"
	"github.com/mediasink/mediasink/internal/models"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		locator    string
		folderPath string
		filename   string
		want       string
	}{
		{"", "", "cat.png", "/cat.png"},
		{"/Media", "renders", "cat.png", "/Media/renders/cat.png"},
		{"onedrive://host/Media", "renders", "cat.png", "/Media/renders/cat.png"},
		{"Media/", "/renders/", "", "/Media/renders"},
	}

	for _, tt := range tests {
		if got := ResolvePath(tt.locator, tt.folderPath, tt.filename); got != tt.want {
			t.Errorf("ResolvePath(%q, %q, %q) = %q, want %q", tt.locator, tt.folderPath, tt.filename, got, tt.want)
		}
	}
}

func TestAccessToken(t *testing.T) {
	ctx := context.Background()

	if got, err := AccessToken(ctx, "EwBo.token"); err != nil || got != "EwBo.token" {
		t.Errorf("AccessToken(bare) = %q, %v", got, err)
	}
	if got, err := AccessToken(ctx, `{"access_token":"EwBo.token"}`); err != nil || got != "EwBo.token" {
		t.Errorf("AccessToken(json) = %q, %v", got, err)
	}
	if _, err := AccessToken(ctx, ""); err == nil {
		t.Error("AccessToken(empty) expected error")
	}
}

func TestUploadManyWalksAndCreates(t *testing.T) {
	content := []byte("fake png bytes")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/me/drive/root", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer EwBo.token" {
			t.Errorf("root auth = %q", got)
		}
		io.WriteString(w, `{"id":"rootid"}`)
	})
	mux.HandleFunc("/me/drive/items/rootid/children", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			// "Media" exists already.
			io.WriteString(w, `{"value":[{"id":"mediaid","name":"Media"}]}`)
		default:
			t.Errorf("unexpected %s on root children", r.Method)
		}
	})
	mux.HandleFunc("/me/drive/items/mediaid/children", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"value":[]}`)
		case http.MethodPost:
			var meta map[string]any
			json.NewDecoder(r.Body).Decode(&meta)
			if meta["name"] != "renders" {
				t.Errorf("create meta = %+v", meta)
			}
			if _, ok := meta["folder"]; !ok {
				t.Error("create meta missing folder facet")
			}
			io.WriteString(w, `{"id":"rendersid"}`)
		}
	})
	mux.HandleFunc("/me/drive/items/rendersid:/cat.png:/content", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("upload method = %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != string(content) {
			t.Errorf("upload body = %q", body)
		}
		io.WriteString(w, `{"id":"item1","webUrl":"https://1drv.ms/item1"}`)
	})

	oldAPI := graphAPI
	graphAPI = srv.URL
	defer func() { graphAPI = oldAPI }()

	c := New()
	results, err := c.UploadMany(context.Background(), []models.FileItem{{Filename: "cat.png", Content: content}}, models.Destination{
		Provider:   "onedrive",
		Locator:    "/Media",
		FolderPath: "renders",
		Credential: "EwBo.token",
	}, cloud.Hooks{})
	if err != nil {
		t.Fatalf("UploadMany() error = %v", err)
	}

	got := results[0]
	if got.Path != "/Media/renders/cat.png" || got.URL != "https://1drv.ms/item1" || got.FileID != "item1" {
		t.Errorf("UploadMany() result = %+v", got)
	}
}

func TestDownloadManyByPath(t *testing.T) {
	content := []byte("fake png bytes")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/me/drive/root:/Media/cat.png:/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})

	oldAPI := graphAPI
	graphAPI = srv.URL
	defer func() { graphAPI = oldAPI }()

	c := New()
	files, err := c.DownloadMany(context.Background(), []string{"cat.png"}, models.Destination{
		Provider:   "onedrive",
		Locator:    "/Media",
		Credential: "EwBo.token",
	}, cloud.Hooks{})
	if err != nil {
		t.Fatalf("DownloadMany() error = %v", err)
	}
	if len(files) != 1 || string(files[0].Content) != string(content) {
		t.Errorf("DownloadMany() = %+v", files)
	}
}

func TestFindChildFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := 0
	mux.HandleFunc("/me/drive/items/rootid/children", func(w http.ResponseWriter, r *http.Request) {
		page++
		if page == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"value":           []map[string]string{{"id": "x1", "name": "other"}},
				"@odata.nextLink": srv.URL + "/me/drive/items/rootid/children?page=2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{{"id": "x2", "name": "Media"}},
		})
	})

	oldAPI := graphAPI
	graphAPI = srv.URL
	defer func() { graphAPI = oldAPI }()

	c := New()
	rc := c.restClient("EwBo.token")
	id, err := c.findChild(context.Background(), rc, "EwBo.token", "rootid", "Media")
	if err != nil {
		t.Fatalf("findChild() error = %v", err)
	}
	if id != "x2" {
		t.Errorf("findChild() = %q, want x2", id)
	}
	if page != 2 {
		t.Errorf("pages fetched = %d, want 2", page)
	}
}
