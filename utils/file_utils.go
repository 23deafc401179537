package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ReleaseFiles removes attachment files owned by a record. Files that are already gone are
// not an error.
func ReleaseFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", p).Msg("failed to release attachment file")
		}
	}
}

// OriginalFileName strips the uuid prefix added by DownloadAttachments.
func OriginalFileName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '_'); i == 36 {
		return base[i+1:]
	}
	return base
}

// GuildAttachmentDir returns the attachment directory of one guild.
func GuildAttachmentDir(root, guildID string) string {
	return filepath.Join(root, guildID)
}
