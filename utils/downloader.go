package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DownloadFile saves url into destDir/fileName and returns the full path.
func DownloadFile(ctx context.Context, url, destDir, fileName string) (string, error) {
	if err := os.MkdirAll(destDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	filePath := filepath.Join(destDir, fileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := AttachmentClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filePath, nil
}

// DownloadAttachments downloads every attachment of a message into destDir.
// File names are prefixed with a uuid so the original name survives a restore.
// Attachments that fail to download are logged and skipped.
func DownloadAttachments(ctx context.Context, attachments []*discordgo.MessageAttachment, destDir string) []string {
	files := make([]string, 0, len(attachments))
	for _, a := range attachments {
		name := uuid.NewString() + "_" + filepath.Base(a.Filename)
		path, err := DownloadFile(ctx, a.URL, destDir, name)
		if err != nil {
			log.Warn().Err(err).Str("url", a.URL).Msg("failed to download attachment")
			continue
		}
		files = append(files, path)
	}
	return files
}
