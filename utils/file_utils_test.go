package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	ReleaseFiles([]string{a, filepath.Join(dir, "missing")})

	_, err := os.Stat(a)
	assert.True(t, os.IsNotExist(err))
}

func TestOriginalFileName(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, "cat.png", OriginalFileName("/data/attachments/1/"+id+"_cat.png"))
	assert.Equal(t, "my_file.txt", OriginalFileName("/tmp/my_file.txt"))
	assert.Equal(t, filepath.Join("root", "42"), GuildAttachmentDir("root", "42"))
}

func TestDownloadAttachments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "guild")
	files := DownloadAttachments(context.Background(), []*discordgo.MessageAttachment{
		{URL: srv.URL + "/ok", Filename: "report.txt"},
		{URL: srv.URL + "/missing", Filename: "gone.txt"},
	}, dir)

	require.Len(t, files, 1)
	assert.Equal(t, "report.txt", OriginalFileName(files[0]))
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
