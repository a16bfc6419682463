package media

import (
	"mime"
	"path/filepath"
	"strings"

	"swarmsync/internal/constants"
	"swarmsync/internal/models"
)

// Kind groups attachments that share a size limit.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindVoice    Kind = "voice"
	KindDocument Kind = "document"
)

// Router classifies attachments and reports the size limit for each kind.
type Router interface {
	// Classify prefers the declared content type and falls back to the file
	// name extension.
	Classify(contentType, fileName string) Kind
	MaxSize(kind Kind) int64
}

var extensions = map[Kind][]string{
	KindImage: {"jpg", "jpeg", "png", "gif", "webp", "heic"},
	KindVideo: {"mp4", "mov", "webm", "mkv"},
	KindVoice: {"ogg", "oga", "opus", "m4a", "aac", "mp3"},
}

type router struct {
	limits models.MediaSizeLimits
}

// NewRouter fills zero limits with defaults.
func NewRouter(limits models.MediaSizeLimits) Router {
	if limits.Image <= 0 {
		limits.Image = constants.DefaultMaxImageSizeMB
	}
	if limits.Video <= 0 {
		limits.Video = constants.DefaultMaxVideoSizeMB
	}
	if limits.Voice <= 0 {
		limits.Voice = constants.DefaultMaxVoiceSizeMB
	}
	if limits.Document <= 0 {
		limits.Document = constants.DefaultMaxDocumentSizeMB
	}
	return &router{limits: limits}
}

func (r *router) Classify(contentType, fileName string) Kind {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch strings.SplitN(mediaType, "/", 2)[0] {
		case "image":
			return KindImage
		case "video":
			return KindVideo
		case "audio":
			return KindVoice
		}
	}
	for _, kind := range []Kind{KindImage, KindVideo, KindVoice} {
		if hasExtension(fileName, extensions[kind]) {
			return kind
		}
	}
	return KindDocument
}

func (r *router) MaxSize(kind Kind) int64 {
	const bytesPerMB = 1024 * 1024
	switch kind {
	case KindImage:
		return int64(r.limits.Image) * bytesPerMB
	case KindVideo:
		return int64(r.limits.Video) * bytesPerMB
	case KindVoice:
		return int64(r.limits.Voice) * bytesPerMB
	default:
		return int64(r.limits.Document) * bytesPerMB
	}
}

func hasExtension(fileName string, allowed []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
