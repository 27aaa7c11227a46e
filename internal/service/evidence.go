package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/models"
	"github.com/smartclaim/intake/internal/storage"
)

// Upload is one raw file received with a submission.
type Upload struct {
	FileName string
	MimeType string
	Data     []byte
}

// Submission is the raw multimodal input of one intake request.
type Submission struct {
	Description string
	SubmitterID string
	Files       []Upload
	Voice       *Upload
}

func (s Submission) Empty() bool {
	return strings.TrimSpace(s.Description) == "" && len(s.Files) == 0 && s.Voice == nil
}

// InputType derives the ticket input type from the sources present.
func (s Submission) InputType() models.InputType {
	hasText := strings.TrimSpace(s.Description) != ""
	hasFiles := len(s.Files) > 0
	hasVoice := s.Voice != nil

	n := 0
	for _, present := range []bool{hasText, hasFiles, hasVoice} {
		if present {
			n++
		}
	}
	switch {
	case n > 1:
		return models.InputCombined
	case hasVoice:
		return models.InputVoice
	case hasFiles:
		return models.InputFile
	default:
		return models.InputText
	}
}

var (
	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true, ".heic": true}
	audioExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".webm": true, ".flac": true, ".aac": true}
)

// KindOf classifies an upload by MIME type, falling back to its extension.
func KindOf(fileName, mimeType string) models.EvidenceKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.KindImage
	case strings.HasPrefix(mt, "audio/"):
		return models.KindAudio
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case imageExts[ext]:
		return models.KindImage
	case audioExts[ext]:
		return models.KindAudio
	}
	return models.KindDocument
}

// Collector turns a submission into stored evidence items.
type Collector struct {
	Storage storage.Store
	Logger  zerolog.Logger
}

// Collect uploads every file and the voice clip, in submission order. Items
// whose upload fails are dropped with a warning.
func (c Collector) Collect(ctx context.Context, sub Submission) ([]models.EvidenceItem, []string) {
	uploads := make([]Upload, 0, len(sub.Files)+1)
	uploads = append(uploads, sub.Files...)
	if sub.Voice != nil {
		uploads = append(uploads, *sub.Voice)
	}

	var items []models.EvidenceItem
	var warnings []string
	for i, u := range uploads {
		kind := KindOf(u.FileName, u.MimeType)
		if sub.Voice != nil && i == len(uploads)-1 {
			kind = models.KindAudio
		}
		loc, err := c.Storage.Put(ctx, u.FileName, u.Data)
		if err != nil {
			c.Logger.Warn().Err(err).Str("file", u.FileName).Msg("evidence upload failed, dropping item")
			warnings = append(warnings, "upload failed: "+u.FileName)
			continue
		}
		items = append(items, models.EvidenceItem{
			Kind:            kind,
			SourceName:      u.FileName,
			SourceSize:      int64(len(u.Data)),
			SourceMimeType:  u.MimeType,
			StorageLocation: loc,
			Data:            u.Data,
		})
	}
	return items, warnings
}
