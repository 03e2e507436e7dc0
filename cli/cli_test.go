package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"yucil"
	"yucil/storage"
	"yucil/youtube"
)

type cliEnv struct {
	dir        string
	configPath string
	tokenPath  string
	apiURL     string
}

func setupCLIEnv(t *testing.T, withSnapshots bool) *cliEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/playlists", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":"b","snippet":{"title":"music-chill","channelTitle":"me"}},
			{"id":"a","snippet":{"title":"music-rock","channelTitle":"me"}},
			{"id":"c","snippet":{"title":"podcast-talk","channelTitle":"me"}}
		]}`)
	})
	mux.HandleFunc("/youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPut:
			_, _ = io.Copy(w, r.Body)
			return
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprintf(w, `{"items":[
			{"id":"%[1]s-2","snippet":{"title":"Second","position":1,"resourceId":{"kind":"youtube#video","videoId":"v2"}}},
			{"id":"%[1]s-1","snippet":{"title":"First","position":0,"resourceId":{"kind":"youtube#video","videoId":"v1"}}}
		]}`, r.URL.Query().Get("playlistId"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env := &cliEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "yucil.toml"),
		tokenPath:  filepath.Join(dir, "token.json"),
		apiURL:     srv.URL + "/",
	}

	secretPath := filepath.Join(dir, "client_secret.json")
	secret := `{"installed":{"client_id":"cid","client_secret":"cs",` +
		`"auth_uri":"https://accounts.example/auth","token_uri":"https://accounts.example/token",` +
		`"redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(secretPath, []byte(secret), 0o600); err != nil {
		t.Fatalf("write client secret: %v", err)
	}

	snapshotDB := ""
	if withSnapshots {
		snapshotDB = filepath.Join(dir, "snapshots.db")
	}
	cfg := fmt.Sprintf("client_secret_path = '%s'\ntoken_path = '%s'\nsnapshot_db_path = '%s'\nopen_browser = false\nlog_level = 'error'\n",
		secretPath, env.tokenPath, snapshotDB)
	if err := os.WriteFile(env.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	token := &oauth2.Token{AccessToken: "stored-access", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := storage.NewFileTokenStore(env.tokenPath).SaveToken(context.Background(), token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand(yucil.WithFetcherOptions(youtube.WithEndpoint(e.apiURL)))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestPlaylistsCommandPrintsMusicIDs(t *testing.T) {
	env := setupCLIEnv(t, true)

	out, _, err := env.run(t, "playlists")
	if err != nil {
		t.Fatalf("playlists: %v", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(out), &ids); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if !slices.Equal(ids, []string{"b", "a"}) {
		t.Errorf("ids = %v, want [b a]", ids)
	}

	out, _, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var snapshots []storage.Snapshot
	if err := json.Unmarshal([]byte(out), &snapshots); err != nil {
		t.Fatalf("decode history %q: %v", out, err)
	}
	if len(snapshots) != 1 || !slices.Equal(snapshots[0].PlaylistIDs, ids) {
		t.Errorf("history = %+v, want one snapshot of %v", snapshots, ids)
	}
}

func TestPlaylistsAllListsEveryPlaylist(t *testing.T) {
	env := setupCLIEnv(t, false)

	out, _, err := env.run(t, "playlists", "--all")
	if err != nil {
		t.Fatalf("playlists --all: %v", err)
	}
	var playlists []youtube.Playlist
	if err := json.Unmarshal([]byte(out), &playlists); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(playlists) != 3 {
		t.Fatalf("got %d playlists, want 3", len(playlists))
	}
}

func TestPlaylistsRejectsConflictingFlags(t *testing.T) {
	env := setupCLIEnv(t, false)

	if _, _, err := env.run(t, "playlists", "--all", "--with-items"); err == nil {
		t.Fatal("expected an error for --all with --with-items")
	}
}

func TestItemsCommandOrdersByPosition(t *testing.T) {
	env := setupCLIEnv(t, false)

	out, _, err := env.run(t, "items", "PL1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	var items []youtube.PlaylistItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(items) != 2 || items[0].VideoID != "v1" || items[1].VideoID != "v2" {
		t.Errorf("items = %+v, want v1 then v2", items)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLIEnv(t, false)

	_, _, err := env.run(t, "history")
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("history error = %v, want disabled", err)
	}
}

func TestServeAnswersRequests(t *testing.T) {
	env := setupCLIEnv(t, false)

	cmd := newRootCommand(yucil.WithFetcherOptions(youtube.WithEndpoint(env.apiURL)))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(`{"id":"r1","command":"get_playlists"}` + "\n"))
	cmd.SetArgs([]string{"--config", env.configPath, "serve"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var resp struct {
		ID   string   `json:"id"`
		OK   bool     `json:"ok"`
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", stdout.String(), err)
	}
	if resp.ID != "r1" || !resp.OK || !slices.Equal(resp.Data, []string{"b", "a"}) {
		t.Errorf("response = %+v", resp)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLIEnv(t, false)
	target := filepath.Join(t.TempDir(), "nested", "yucil.toml")

	out, _, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, env.configPath) || !strings.Contains(out, "title_prefix") || !strings.Contains(out, "music-") {
		t.Errorf("config show output missing fields:\n%s", out)
	}
}

func TestMissingConfigFileFails(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "playlists"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []column{numCol("#"), col("Playlist ID")}, [][]string{{"1", "PLa"}, {"2"}})
	out := buf.String()
	for _, want := range []string{"Playlist ID", "PLa", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "PLAYLIST ID") {
		t.Errorf("headers should keep their case:\n%s", out)
	}

	buf.Reset()
	printTable(&buf, nil, [][]string{{"x"}})
	if buf.Len() != 0 {
		t.Errorf("no columns should render nothing, got %q", buf.String())
	}
}

func (e *cliEnv) enableEdit(t *testing.T) {
	t.Helper()
	f, err := os.OpenFile(e.configPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("allow_edit = true\n"); err != nil {
		t.Fatalf("append config: %v", err)
	}
}

func TestEditRequiresAllowEdit(t *testing.T) {
	env := setupCLIEnv(t, false)

	_, _, err := env.run(t, "edit", "delete", "PL1-1")
	if !errors.Is(err, errEditDisabled) {
		t.Fatalf("edit delete error = %v, want errEditDisabled", err)
	}
}

func TestEditMoveLooksUpVideo(t *testing.T) {
	env := setupCLIEnv(t, false)
	env.enableEdit(t)

	out, _, err := env.run(t, "edit", "move", "PL1", "PL1-2", "0")
	if err != nil {
		t.Fatalf("edit move: %v", err)
	}
	var item youtube.PlaylistItem
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if item.ID != "PL1-2" || item.VideoID != "v2" || item.Position != 0 {
		t.Errorf("moved item = %+v", item)
	}

	if _, _, err := env.run(t, "edit", "move", "PL1", "missing", "0"); err == nil || !strings.Contains(err.Error(), "not in playlist") {
		t.Errorf("move of unknown item error = %v", err)
	}

	out, _, err = env.run(t, "edit", "delete", "PL1-1")
	if err != nil {
		t.Fatalf("edit delete: %v", err)
	}
	if !strings.Contains(out, "Deleted item PL1-1") {
		t.Errorf("unexpected output %q", out)
	}
}
